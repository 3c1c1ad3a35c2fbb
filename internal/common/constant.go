package common

// AccessTokenHeaderName is the HTTP header used to carry the access token
// on outbound requests.
const AccessTokenHeaderName = "Authorization"

// Collection names known to both client and server. A collection groups the
// records of one kind for one account; its aggregate version is a ctag.
const (
	CollectionOwnerships = "ownerships"
)
