package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError is a failure talking to a rate endpoint.
type NetworkError struct {
	Op        string // Operation that failed (e.g., "fetch", "decode")
	Err       error
	Retriable bool
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// SchemaMigrationError reports that neither the in-place column addition nor the
// table rebuild succeeded. The store keeps running without a volume column.
type SchemaMigrationError struct {
	InPlace error
	Rebuild error
}

func (e *SchemaMigrationError) Error() string {
	msg := "schema migration failed"
	if e.InPlace != nil {
		msg += ": in-place: " + e.InPlace.Error()
	}
	if e.Rebuild != nil {
		msg += "; rebuild: " + e.Rebuild.Error()
	}
	return msg
}

func (e *SchemaMigrationError) Unwrap() []error {
	errs := make([]error, 0, 2)
	for _, err := range []error{e.InPlace, e.Rebuild} {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// RowWriteError is a single failed upsert inside a batch.
type RowWriteError struct {
	Currency string
	Err      error
}

func (e *RowWriteError) Error() string {
	return "write " + e.Currency + ": " + e.Err.Error()
}

func (e *RowWriteError) Unwrap() error {
	return e.Err
}

// QueryError is a failed read against the store.
type QueryError struct {
	Currency string
	Err      error
}

func (e *QueryError) Error() string {
	return "query " + e.Currency + ": " + e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnknownCurrency is returned when a code has no CurrencyProfile.
	ErrUnknownCurrency = errors.New("unknown currency")

	// ErrInvalidDays is returned when a lookback window is not positive.
	ErrInvalidDays = errors.New("days must be at least 1")

	// ErrNoRates is returned when a rate endpoint answers without usable rates.
	ErrNoRates = errors.New("no usable rates in response")

	// ErrUnsupportedFormat is returned for unknown export formats.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
