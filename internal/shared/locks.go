package shared

// RevokedTokenKey builds redis keys for revoked session tokens.
func RevokedTokenKey(tokenID string) string {
	return "session:revoked:" + tokenID
}
