package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const userAgent = "warikanbot/1.0 (+https://github.com/susu3304/warikanbot)"

type DiscordUser struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	GlobalName *string `json:"global_name"`
	Avatar     *string `json:"avatar"`
}

type DiscordGuild struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Owner *bool  `json:"owner,omitempty"`
}

// discordGet decodes a Discord API response authorized with the user's token.
func (a *API) discordGet(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", a.discordAPI+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *API) getDiscordUser(ctx context.Context, accessToken string) (*DiscordUser, error) {
	var user DiscordUser
	if err := a.discordGet(ctx, "/users/@me", accessToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *API) getDiscordGuilds(ctx context.Context, accessToken string) ([]DiscordGuild, error) {
	var guilds []DiscordGuild
	if err := a.discordGet(ctx, "/users/@me/guilds", accessToken, &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

func (a *API) userHasGuildAccess(ctx context.Context, accessToken string, guildID int64) bool {
	guilds, err := a.getDiscordGuilds(ctx, accessToken)
	if err != nil {
		return false
	}

	for _, guild := range guilds {
		id, _ := strconv.ParseInt(guild.ID, 10, 64)
		if id == guildID {
			return true
		}
	}
	return false
}

func getUsername(user *DiscordUser) string {
	if user.GlobalName != nil && *user.GlobalName != "" {
		return *user.GlobalName
	}
	return user.Username
}
