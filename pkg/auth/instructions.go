package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide explains where Jira credentials come from
func ShowTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "JIRA CREDENTIALS")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Public instances such as issues.apache.org need no credentials.")
	fmt.Fprintln(w, "Credentials raise rate limits and unlock private projects.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Jira Cloud:")
	fmt.Fprintln(w, "  1. Open https://id.atlassian.com/manage-profile/security/api-tokens")
	fmt.Fprintln(w, "  2. Create an API token and copy it")
	fmt.Fprintln(w, "  3. Use your account email as the username")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Jira Server / Data Center:")
	fmt.Fprintln(w, "  Use your login name and a personal access token or password.")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Environment: %s and %s override stored credentials.\n", EnvUsername, EnvAPIToken)
	fmt.Fprintln(w, rule)
}
