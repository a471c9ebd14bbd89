package commands

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func ParseGuildID(guildID string) int64 {
	id, err := strconv.ParseInt(guildID, 10, 64)
	if err != nil {
		log.Printf("Failed to parse guild ID '%s': %v", guildID, err)
		return 0
	}
	return id
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func findOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range opts {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// getUserID reads a user option. The raw option value already carries the ID.
func getUserID(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	o := findOption(opts, name)
	if o == nil {
		return ""
	}
	if id, ok := o.Value.(string); ok {
		return id
	}
	return ""
}

func getNumberOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *float64 {
	if o := findOption(opts, name); o != nil {
		v := o.FloatValue()
		return &v
	}
	return nil
}

func getIntOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *int64 {
	if o := findOption(opts, name); o != nil {
		v := o.IntValue()
		return &v
	}
	return nil
}

func getStringOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *string {
	if o := findOption(opts, name); o != nil {
		v := o.StringValue()
		return &v
	}
	return nil
}

var mentionPattern = regexp.MustCompile(`<@!?([0-9]+)>`)

// parseMentionIDs accepts <@123>, <@!123> and raw IDs separated by spaces.
func parseMentionIDs(text string) []string {
	var ids []string
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	for _, tok := range strings.Fields(text) {
		if allDigits(tok) {
			ids = append(ids, tok)
		}
	}
	return unique(ids)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func mentions(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "<@" + id + ">"
	}
	return strings.Join(parts, ", ")
}

// truncateMessage keeps content within Discord's 2000 character limit.
func truncateMessage(content string) string {
	r := []rune(content)
	if len(r) <= 2000 {
		return content
	}
	return string(r[:1997]) + "..."
}
