package router

import "regexp"

// Media is a structured attachment extracted from a model reply.
type Media struct {
	URL   string
	Video bool
}

var (
	mediaURLRe = regexp.MustCompile(
		`https?://[^\s<>()\[\]]+?\.(?i:png|jpe?g|gif|bmp|webp|mp4|avi|mov|mkv|webm)(?:\?[^\s<>()\[\]]*)?`)
	videoExtRe = regexp.MustCompile(`(?i)\.(?:mp4|avi|mov|mkv|webm)(?:\?|$)`)

	// Markdown links whose target is a media URL: the link is replaced
	// by its label so the display text reads naturally.
	markdownMediaRe = regexp.MustCompile(
		`!?\[([^\]]*)\]\((https?://[^\s<>()]+?\.(?i:png|jpe?g|gif|bmp|webp|mp4|avi|mov|mkv|webm)(?:\?[^\s<>()]*)?)\)`)
)

// extractMedia finds the first embedded media URL in text. It unwraps
// markdown links around media targets, removes the raw URL from the
// display text, and returns the cleaned text plus the attachment. With
// no media present the text is returned unchanged and media is nil.
func extractMedia(text string) (string, *Media) {
	var url string

	if m := markdownMediaRe.FindStringSubmatchIndex(text); m != nil {
		label := text[m[2]:m[3]]
		url = text[m[4]:m[5]]
		text = text[:m[0]] + label + text[m[1]:]
	} else if loc := mediaURLRe.FindStringIndex(text); loc != nil {
		url = text[loc[0]:loc[1]]
		text = text[:loc[0]] + text[loc[1]:]
	} else {
		return text, nil
	}

	return text, &Media{URL: url, Video: videoExtRe.MatchString(url)}
}
