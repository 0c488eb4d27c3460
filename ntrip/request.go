package ntrip

import (
	"encoding/base64"
	"fmt"
)

// UserAgent identifies the client to the caster.  NTRIP 1.0 casters expect
// the agent name to start with "NTRIP".
const UserAgent = "NTRIP GoblimeyNTRIPClient/1.0.0"

// BuildRequest returns the request for the given mount point.  The empty
// mount point requests the source table.  The Authorization header is only
// sent when there is a user name.
func BuildRequest(mountPoint, username, password string) []byte {
	request := fmt.Sprintf("GET /%s HTTP/1.0\r\n", mountPoint) +
		fmt.Sprintf("User-Agent: %s\r\n", UserAgent) +
		"Accept: */*\r\n" +
		"Connection: close\r\n"

	if len(username) > 0 {
		request += fmt.Sprintf("Authorization: Basic %s\r\n", EncodeCredentials(username, password))
	}

	request += "\r\n"

	return []byte(request)
}

// EncodeCredentials returns the Basic authentication token for the user
// name and password.
func EncodeCredentials(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
