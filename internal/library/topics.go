package library

const (
	TopicBorrowCreated = "library.borrow.created"
	TopicBooksReturned = "library.borrow.returned"
	TopicFineIssued    = "library.fine.issued"
	TopicFinePaid      = "library.fine.paid"
)

// PartitionKey keeps every event of one borrow/fine on the same partition so
// order is preserved per entity.
func PartitionKey(id string) []byte { return []byte(id) }
