package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
)

// registerGames wires the Minecraft and Steam suffix tags.
func registerGames(must func(classify.Kind, string, registry.Handler), d *Deps) {
	must(classify.KindSuffix, "MC", minecraftServerHandler(d))
	must(classify.KindSuffix, "MINECRAFT", minecraftServerHandler(d))
	must(classify.KindSuffix, "MCU", minecraftUserHandler(d))
	must(classify.KindSuffix, "STEAM", steamAppHandler(d))
	must(classify.KindSuffix, "STEAMSEARCH", steamSearchHandler(d))
}

type mcStatusResponse struct {
	Online  bool   `json:"online"`
	Host    string `json:"host"`
	Version struct {
		NameClean string `json:"name_clean"`
	} `json:"version"`
	Players struct {
		Online int `json:"online"`
		Max    int `json:"max"`
	} `json:"players"`
	MOTD struct {
		Clean string `json:"clean"`
	} `json:"motd"`
}

func minecraftServerHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var out mcStatusResponse
		url := "https://api.mcsrvstat.us/3/" + q.Payload
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("minecraft server lookup failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "Minecraft server "+q.Payload)
		line(&b, "online", fmt.Sprintf("%t", out.Online))
		if out.Online {
			line(&b, "version", out.Version.NameClean)
			line(&b, "players", fmt.Sprintf("%d/%d", out.Players.Online, out.Players.Max))
			line(&b, "motd", out.MOTD.Clean)
		}
		return b.String(), nil
	}
}

func minecraftUserHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var out struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		url := "https://api.mojang.com/users/profiles/minecraft/" + q.Payload
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("minecraft user lookup failed: %v", err), nil
		}
		if out.ID == "" {
			return errLine("no Minecraft user named %q", q.Payload), nil
		}
		var b strings.Builder
		comment(&b, "Minecraft user "+out.Name)
		line(&b, "uuid", out.ID)
		return b.String(), nil
	}
}

// steamAppHandler looks up a Steam appid (or, if the payload is not
// numeric, the closest search result) via Steam's unauthenticated storefront
// API — the same endpoint the official Steam store page itself calls.
func steamAppHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		appID := q.Payload
		if !isDigits(appID) {
			id, err := steamSearchFirst(ctx, d, appID)
			if err != nil {
				return errLine("steam app lookup failed: %v", err), nil
			}
			appID = id
		}

		var out map[string]struct {
			Success bool `json:"success"`
			Data    struct {
				Name          string `json:"name"`
				ShortDesc     string `json:"short_description"`
				ReleaseDate   struct {
					Date string `json:"date"`
				} `json:"release_date"`
				Developers []string `json:"developers"`
			} `json:"data"`
		}
		url := "https://store.steampowered.com/api/appdetails?appids=" + appID
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("steam app lookup failed: %v", err), nil
		}
		entry, ok := out[appID]
		if !ok || !entry.Success {
			return errLine("no Steam app found for %q", q.Payload), nil
		}
		var b strings.Builder
		comment(&b, "Steam app "+appID)
		line(&b, "name", entry.Data.Name)
		line(&b, "developers", strings.Join(entry.Data.Developers, ", "))
		line(&b, "release-date", entry.Data.ReleaseDate.Date)
		line(&b, "description", entry.Data.ShortDesc)
		return b.String(), nil
	}
}

func steamSearchHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var out struct {
			Items []struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"items"`
		}
		url := "https://store.steampowered.com/api/storesearch/?term=" + q.Payload + "&cc=us&l=en"
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("steam search failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "Steam search results for "+q.Payload)
		max := len(out.Items)
		if max > 10 {
			max = 10
		}
		for _, item := range out.Items[:max] {
			line(&b, "app", fmt.Sprintf("%d %s", item.ID, item.Name))
		}
		return b.String(), nil
	}
}

func steamSearchFirst(ctx context.Context, d *Deps, term string) (string, error) {
	var out struct {
		Items []struct {
			ID int `json:"id"`
		} `json:"items"`
	}
	url := "https://store.steampowered.com/api/storesearch/?term=" + term + "&cc=us&l=en"
	if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
		return "", err
	}
	if len(out.Items) == 0 {
		return "", fmt.Errorf("no results for %q", term)
	}
	return fmt.Sprintf("%d", out.Items[0].ID), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
