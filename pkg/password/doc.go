// Package password hashes passwords with argon2id and encodes them in the PHC
// string format, so each hash carries its own salt and cost parameters.
//
//	h := password.New(password.DefaultConfig())
//	encoded, err := h.Hash("correct horse battery staple")
//	ok, err := h.Verify("correct horse battery staple", encoded)
//
// Tests can pass a cheap Config (Memory: 1024, Iterations: 1) to keep runs fast.
package password
