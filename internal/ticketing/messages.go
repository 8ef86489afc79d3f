package ticketing

import "fmt"

// composeMessage renders the fan-out message for a queue position.
// Arabic keeps its grammatical dual for two people; other languages
// fall back to English singular/plural.
func composeMessage(lang, serviceName string, ahead int) (title, body string) {
	if lang == "ar" {
		title = "اقترب دورك"
		switch {
		case ahead == 0:
			title = "حان دورك"
			body = fmt.Sprintf("حان دورك في %s، يرجى التوجه إلى الشباك.", serviceName)
		case ahead == 1:
			body = fmt.Sprintf("أمامك شخص واحد في %s.", serviceName)
		case ahead == 2:
			body = fmt.Sprintf("أمامك شخصان في %s.", serviceName)
		default:
			body = fmt.Sprintf("أمامك %d أشخاص في %s.", ahead, serviceName)
		}
		return title, body
	}

	title = "Your turn is near"
	switch {
	case ahead == 0:
		title = "It is your turn"
		body = fmt.Sprintf("It is your turn for %s. Please proceed to the counter.", serviceName)
	case ahead == 1:
		body = fmt.Sprintf("One person is ahead of you for %s.", serviceName)
	case ahead == 2:
		body = fmt.Sprintf("Two people are ahead of you for %s.", serviceName)
	default:
		body = fmt.Sprintf("%d people are ahead of you for %s.", ahead, serviceName)
	}
	return title, body
}
