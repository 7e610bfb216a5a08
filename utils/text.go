package utils

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// CountWords returns the number of whitespace-separated words in a message.
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// CountImages returns how many of a message's attachments are images, by
// content type with a filename-extension fallback.
func CountImages(attachments []*discordgo.MessageAttachment) int {
	count := 0
	for _, a := range attachments {
		if strings.HasPrefix(a.ContentType, "image/") {
			count++
			continue
		}
		name := strings.ToLower(a.Filename)
		for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp"} {
			if strings.HasSuffix(name, ext) {
				count++
				break
			}
		}
	}
	return count
}
