package transport

import (
	"encoding/base64"

	"github.com/emersion/go-sasl"
)

// XOAuth2 is the mechanism name used by Google and Microsoft.
const XOAuth2 = "XOAUTH2"

func xoauth2Payload(user, token string) []byte {
	return []byte("user=" + user + "\x01auth=Bearer " + token + "\x01\x01")
}

func xoauth2Base64(user, token string) string {
	return base64.StdEncoding.EncodeToString(xoauth2Payload(user, token))
}

type xoauth2Client struct {
	user, token string
}

// NewXOAuth2Client returns a SASL client for XOAUTH2, which go-sasl does
// not ship.
func NewXOAuth2Client(user, token string) sasl.Client {
	return &xoauth2Client{user: user, token: token}
}

func (c *xoauth2Client) Start() (string, []byte, error) {
	return XOAuth2, xoauth2Payload(c.user, c.token), nil
}

// Next answers the JSON error challenge with an empty response so the server
// completes the exchange with a tagged failure.
func (c *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	return []byte{}, nil
}
