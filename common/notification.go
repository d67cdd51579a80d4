package common

// Notification is a decoded row of the notification record table.
//
// ID is the storage row identifier observed by the poll that produced the
// notification. Row identifiers are reused after rows are deleted, so ID must
// not be used to deduplicate notifications across runs.
type Notification struct {
	ID       int64   `json:"id" msgpack:"id"`
	Title    string  `json:"title" msgpack:"title"`
	Subtitle *string `json:"subtitle" msgpack:"subtitle"`
	Body     string  `json:"body" msgpack:"body"`
	Date     int64   `json:"date" msgpack:"date"`
	BundleID *string `json:"bundle_id" msgpack:"bundle_id"`
}

// BundleIDOrEmpty returns the bundle identifier, or "" when absent
func (n Notification) BundleIDOrEmpty() string {
	if n.BundleID == nil {
		return ""
	}
	return *n.BundleID
}
