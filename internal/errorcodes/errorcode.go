// Package errorcodes defines the two-character result codes returned by the
// PIN protection service.
package errorcodes

// Result codes.
var (
	Err00 = ServiceError{"00", "No error"}
	Err15 = ServiceError{
		"15",
		"Invalid input data (invalid format, invalid characters, or not enough data provided)",
	}
	Err22 = ServiceError{"22", "Invalid account number"}
	Err24 = ServiceError{"24", "PIN is fewer than 4 or more than 6 digits in length"}
	Err42 = ServiceError{"42", "DES or RSA failure"}
	Err68 = ServiceError{"68", "Command has been disabled"}
)

// ServiceError pairs a result code with its description.
type ServiceError struct {
	Code        string // two-character result code
	Description string // human-readable description
}

// Error implements the error interface: "<Code>: <Description>".
func (e ServiceError) Error() string {
	return e.Code + ": " + e.Description
}

// CodeOnly returns the code alone, for embedding in responses.
func (e ServiceError) CodeOnly() string {
	return e.Code
}
