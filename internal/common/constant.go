package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the access
// token on inbound requests.
const AccessTokenHeaderName = "access_token"

// BearerPrefix prefixes access tokens in the HTTP Authorization header.
const BearerPrefix = "Bearer "
