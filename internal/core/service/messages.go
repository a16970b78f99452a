package service

import "fmt"

// Reply templates for the chat transport. The transport renders plain text;
// formatting beyond simple placeholders stays out of the core.
const (
	msgWelcome          = "Welcome! Please send the email address you registered with."
	msgEmailInvalid     = "That doesn't look like a valid email address. Please try again."
	msgEmailNotAllowed  = "This email is not on the access list. Contact support if you believe this is a mistake."
	msgAskNiche         = "Great, you're in! Describe your business or blog in a few sentences so we can detect your niche."
	msgIdleHelp         = "Send \"topic\" to get today's post topic, or wait for the daily prompt."
	msgAnswerInvalid    = "Your answer looks empty or too repetitive. Tell us a bit more, in your own words."
	msgGenerating       = "Hold on, your previous post is still being generated."
	msgGenerationFailed = "Something went wrong while generating your post. Please send your answer again."
	msgSuspended        = "Your subscription is inactive. Renew it to keep generating posts."
	msgNoContentToday   = "No topic is configured for today. Please try again later."
)

func msgNicheDetected(niche string) string {
	return fmt.Sprintf("Your niche: %s. You'll get a daily topic prompt every morning.", niche)
}

func msgDailyPrompt(topic, question string) string {
	return fmt.Sprintf("Today's topic for you:\n\n%s\n\n%s", topic, question)
}

func msgQuotaExceeded(generated, limit int) string {
	return fmt.Sprintf("You've reached your weekly limit (%d/%d posts). The counter resets on Monday.", generated, limit)
}

func msgPostReady(content string, remaining int) string {
	return fmt.Sprintf("%s\n\nPosts left this week: %d", content, remaining)
}
