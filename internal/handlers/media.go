package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Akaere-NetWorks/whois-server/internal/classify"
	"github.com/Akaere-NetWorks/whois-server/internal/registry"
)

// registerMedia wires the informational/entertainment suffix tags: IMDB,
// IMDBSEARCH, WIKIPEDIA, ACGC, LYRIC, PIXIV, GITHUB, MEAL, MEAL-CN.
func registerMedia(must func(classify.Kind, string, registry.Handler), d *Deps) {
	must(classify.KindSuffix, "IMDB", imdbHandler(d))
	must(classify.KindSuffix, "IMDBSEARCH", imdbSearchHandler(d))
	must(classify.KindSuffix, "WIKIPEDIA", wikipediaHandler(d))
	must(classify.KindSuffix, "ACGC", acgcHandler(d))
	must(classify.KindSuffix, "LYRIC", lyricHandler(d))
	must(classify.KindSuffix, "PIXIV", pixivHandler(d))
	must(classify.KindSuffix, "GITHUB", githubHandler(d))
	must(classify.KindSuffix, "MEAL", mealHandler(d, "https://www.themealdb.com/api/json/v1/1/random.php"))
	must(classify.KindSuffix, "MEAL-CN", mealHandler(d, "https://www.themealdb.com/api/json/v1/1/filter.php?a=Chinese"))
}

// imdbHandler looks a title up on OMDb (the only free IMDB-style metadata
// API), which requires a per-consumer key: omdbLookup issues the request
// only when Deps.OMDbAPIKey is set and answers with an informational
// comment otherwise.
func imdbHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		return omdbLookup(ctx, d, "t="+q.Payload)
	}
}

func imdbSearchHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		return omdbLookup(ctx, d, "s="+q.Payload)
	}
}

func omdbLookup(ctx context.Context, d *Deps, query string) (string, error) {
	if d.OMDbAPIKey == "" {
		var b strings.Builder
		comment(&b, "IMDB metadata")
		comment(&b, "OMDb's API requires an issued key; none is configured for this gateway (see http://www.omdbapi.com/apikey.aspx)")
		return b.String(), nil
	}
	var out struct {
		Title  string `json:"Title"`
		Year   string `json:"Year"`
		Genre  string `json:"Genre"`
		Plot   string `json:"Plot"`
		ImdbID string `json:"imdbID"`
		Search []struct {
			Title  string `json:"Title"`
			Year   string `json:"Year"`
			ImdbID string `json:"imdbID"`
		} `json:"Search"`
	}
	url := fmt.Sprintf("https://www.omdbapi.com/?apikey=%s&%s", d.OMDbAPIKey, query)
	if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
		return errLine("IMDB lookup failed: %v", err), nil
	}
	var b strings.Builder
	if len(out.Search) > 0 {
		comment(&b, "IMDB search results")
		for _, item := range out.Search {
			line(&b, "title", item.Title+" ("+item.Year+") "+item.ImdbID)
		}
		return b.String(), nil
	}
	comment(&b, "IMDB title "+out.Title)
	line(&b, "year", out.Year)
	line(&b, "genre", out.Genre)
	line(&b, "imdb-id", out.ImdbID)
	line(&b, "plot", out.Plot)
	return b.String(), nil
}

func wikipediaHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var out struct {
			Title    string `json:"title"`
			Extract  string `json:"extract"`
			Pageid   int    `json:"pageid"`
			ContentURLs struct {
				Desktop struct {
					Page string `json:"page"`
				} `json:"desktop"`
			} `json:"content_urls"`
		}
		url := "https://en.wikipedia.org/api/rest_v1/page/summary/" + q.Payload
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("wikipedia lookup failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "Wikipedia: "+out.Title)
		line(&b, "summary", out.Extract)
		line(&b, "url", out.ContentURLs.Desktop.Page)
		return b.String(), nil
	}
}

func acgcHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var out struct {
			Data []struct {
				Name string `json:"name"`
				About string `json:"about"`
				Anime []struct {
					Anime struct {
						Title string `json:"title"`
					} `json:"anime"`
				} `json:"anime"`
			} `json:"data"`
		}
		url := "https://api.jikan.moe/v4/characters?q=" + q.Payload + "&limit=3"
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("character lookup failed: %v", err), nil
		}
		if len(out.Data) == 0 {
			return errLine("no character found for %q", q.Payload), nil
		}
		var b strings.Builder
		comment(&b, "ACGC character search for "+q.Payload)
		for _, c := range out.Data {
			shows := make([]string, 0, len(c.Anime))
			for _, a := range c.Anime {
				shows = append(shows, a.Anime.Title)
			}
			line(&b, "name", c.Name)
			line(&b, "appears-in", strings.Join(shows, ", "))
		}
		return b.String(), nil
	}
}

func lyricHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var b strings.Builder
		comment(&b, "LYRIC is a bare command; it has no payload to search on")
		comment(&b, "use a dedicated lyric-search plugin suffix for a specific song")
		return b.String(), nil
	}
}

func pixivHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var b strings.Builder
		comment(&b, "Pixiv artwork "+q.Payload)
		comment(&b, "Pixiv's API requires an authenticated session this gateway does not hold")
		return b.String(), nil
	}
}

func githubHandler(d *Deps) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var out struct {
			FullName    string `json:"full_name"`
			Description string `json:"description"`
			Stars       int    `json:"stargazers_count"`
			Language    string `json:"language"`
			HTMLURL     string `json:"html_url"`
		}
		url := "https://api.github.com/repos/" + q.Payload
		if err := fetchJSON(ctx, d.HTTPClient, url, map[string]string{"Accept": "application/vnd.github+json"}, &out); err != nil {
			return errLine("github lookup failed: %v", err), nil
		}
		var b strings.Builder
		comment(&b, "GitHub repository "+out.FullName)
		line(&b, "description", out.Description)
		line(&b, "language", out.Language)
		line(&b, "stars", fmt.Sprintf("%d", out.Stars))
		line(&b, "url", out.HTMLURL)
		return b.String(), nil
	}
}

func mealHandler(d *Deps, url string) registry.Handler {
	return func(ctx context.Context, q classify.Query) (string, error) {
		var out struct {
			Meals []struct {
				StrMeal     string `json:"strMeal"`
				StrCategory string `json:"strCategory"`
				StrArea     string `json:"strArea"`
				StrInstructions string `json:"strInstructions"`
			} `json:"meals"`
		}
		if err := fetchJSON(ctx, d.HTTPClient, url, nil, &out); err != nil {
			return errLine("meal lookup failed: %v", err), nil
		}
		if len(out.Meals) == 0 {
			return errLine("no meal suggestion available"), nil
		}
		meal := out.Meals[0]
		var b strings.Builder
		comment(&b, "meal suggestion: "+meal.StrMeal)
		line(&b, "category", meal.StrCategory)
		line(&b, "area", meal.StrArea)
		if meal.StrInstructions != "" {
			instr := meal.StrInstructions
			if len(instr) > 400 {
				instr = instr[:400] + "..."
			}
			line(&b, "instructions", strings.ReplaceAll(instr, "\n", " "))
		}
		return b.String(), nil
	}
}
