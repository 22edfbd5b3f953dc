package client

// RequireCredential runs next when has reports a credential and redirect
// otherwise.
func RequireCredential(has func() bool, redirect func() error, next func() error) error {
	if !has() {
		return redirect()
	}
	return next()
}

// RedirectIfAuthenticated is the inverse of RequireCredential, for screens like
// login and register that make no sense with a credential.
func RedirectIfAuthenticated(has func() bool, redirect func() error, next func() error) error {
	if has() {
		return redirect()
	}
	return next()
}
