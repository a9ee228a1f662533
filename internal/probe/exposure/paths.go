package exposure

// SensitivePaths are probed with HEAD relative to the target origin.
var SensitivePaths = []string{
	"/.env",
	"/.git/config",
	"/config.php",
	"/phpinfo.php",
	"/backup.sql",
	"/.DS_Store",
	"/web.config",
}

// RedirectParams are query parameters commonly used as redirect targets.
var RedirectParams = []string{"redirect", "url", "next", "return", "returnTo", "goto"}
