package paths

// Route constants shared by handlers and redirects.
const (
	Index              = "/"
	Login              = "/accounts/login"
	Logout             = "/accounts/logout"
	Register           = "/accounts/register"
	Profile            = "/accounts/profile"
	Subscribe          = "/accounts/subscribe"
	CancelSubscription = "/accounts/cancel_subscription"
	Webhook            = "/accounts/subscriptions_webhook"
	Members            = "/members"
)

// SafeNext returns next when it is a local path, so login cannot be used
// to bounce users to another host.
func SafeNext(next string) (string, bool) {
	if len(next) == 0 || next[0] != '/' {
		return "", false
	}
	if len(next) > 1 && (next[1] == '/' || next[1] == '\\') {
		return "", false
	}
	return next, true
}
