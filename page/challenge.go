package page

// challengeMarkers identify the bot-verification page served instead of
// real content.
var challengeMarkers = []string{
	`form[action*="validateCaptcha"]`,
	`#captchacharacters`,
	`img[src*="/captcha/"]`,
}

// IsChallenge reports whether n looks like a bot-challenge page.
func IsChallenge(n Node) bool {
	for _, marker := range challengeMarkers {
		if n.Has(marker) {
			return true
		}
	}
	return false
}
