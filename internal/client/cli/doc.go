// Package cli is the interactive terminal front end of the session client.
//
// It wires configuration, the credential store, the API gateway and the
// session manager, restores the previous session on start and then runs a
// small REPL:
//
//   - signup / login / logout
//   - forgot (password reset request)
//   - oauth <google|github>, which waits for the redirect on a loopback
//     listener, and callback <token> to paste a token by hand
//   - whoami / refresh / profile [edit] / status
//
// App.Run blocks until the user exits.
package cli
