package errors

// Error codes returned in the "error" field of every error response.
// Format: CATEGORY_SPECIFIC_DETAIL. The storefront maps each code to a
// localized message.

const (
	// ==================== Session (SESSION_) ====================
	SessionRequired = "SESSION_REQUIRED" // no cart session on the request
	SessionInvalid  = "SESSION_INVALID"  // session token rejected

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // malformed body
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // missing product id
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE" // quantity out of range
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== Cart (CART_) ====================
	CartNotFound       = "CART_NOT_FOUND"
	CartPersistPending = "CART_PERSIST_PENDING" // saved in memory, storage write pending

	// ==================== Resource (RESOURCE_) ====================
	ResourceNotFound = "RESOURCE_NOT_FOUND"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
