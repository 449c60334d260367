package domain

// ExpectedColumns is the transaction CSV schema the pipeline expects.
var ExpectedColumns = []string{
	"transaction_id",
	"sender_account",
	"receiver_account",
	"amount",
	"timestamp",
}

// ValidationResult is a per-file structural assessment of an uploaded
// dataset. It is scoped to the staged file and discarded when the file is
// replaced.
type ValidationResult struct {
	ColumnsDetected bool     `json:"columnsDetected"`
	TimestampValid  bool     `json:"timestampValid"`
	AmountNumeric   bool     `json:"amountNumeric"`
	AmountPositive  bool     `json:"amountPositive"`
	InvalidRows     int      `json:"invalidRows"`
	DuplicateRows   int      `json:"duplicateRows"`
	Columns         []string `json:"columns"`
}

// Valid reports whether every structural check passed.
func (v *ValidationResult) Valid() bool {
	return v.ColumnsDetected && v.TimestampValid && v.AmountNumeric && v.AmountPositive
}
