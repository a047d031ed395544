package controller

// Status messages surfaced to the user. Failures fall into exactly two
// buckets per operation: a declined authorization prompt and everything
// else.
const (
	StatusBuySuccess     = "Book(s) purchased successfully!"
	StatusBuyDeclined    = "Book Purchase Failed: Unable to complete transaction!"
	StatusBuyFailed      = "Book Purchase Failed: Unable to purchase books."
	StatusReturnSuccess  = "Book(s) returned successfully!"
	StatusReturnDeclined = "Book Return Failed: Unable to complete transaction!"
	StatusReturnFailed   = "Book Return Failed: Unable to return books."

	StatusProviderRequired = "A wallet provider is required to connect."
)

// statusReporter holds the last human-readable outcome message.
type statusReporter struct {
	msg string
}

func (r *statusReporter) Set(msg string) { r.msg = msg }

func (r *statusReporter) Clear() { r.msg = "" }

func (r *statusReporter) Message() string { return r.msg }
