// Package fault defines the coded error taxonomy shared by the session store,
// the authentication layer and the RPC gateway.
//
// Every error that may reach a browser is a fault.Error carrying a numeric code
// and a human readable message. Comparison with errors.Is uses the code only:
//
//	if errors.Is(err, fault.ErrSessionExpired) {
//		// resynchronize the client
//	}
//
// Customise the message without losing the identity of the error:
//
//	return fault.ErrAccessDenied.WithMessagef("You must be a member of '%s' to perform this operation.", role)
//
// Attach an infrastructure cause for logging; the cause is never serialised:
//
//	return fault.ErrInternal.WithCause(err)
//
// From converts arbitrary errors returned by RPC handlers into a fault.Error so
// the gateway can always emit a {code, message} pair.
package fault
