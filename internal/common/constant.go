package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the access
// token on outbound requests.
const AccessTokenHeaderName = "access_token"

// PasswordHeaderName carries a vault password over HTTP so it stays out of
// request URLs and access logs.
const PasswordHeaderName = "X-Vault-Password"

// TransferIDPrefix starts every transfer identifier.
const TransferIDPrefix = "v-"
