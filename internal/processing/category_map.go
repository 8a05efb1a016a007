package processing

import "sort"

// CategoryToSubreddits groups the subreddits watched as the social source.
var CategoryToSubreddits = map[string][]string{
	"Technology":               {"technology", "Futurology", "gadgets"},
	"Business & Finance":       {"investing", "finance", "economics"},
	"Politics & World Affairs": {"politics", "worldnews", "geopolitics"},
	"Health & Science":         {"science", "health", "medicine"},
	"Crime & Law":              {"law", "TrueCrime"},
	"News":                     {"news", "OutOfTheLoop"},
}

// SubredditsFor returns the distinct subreddits of the given categories in
// sorted order. With no categories every subreddit is returned.
func SubredditsFor(categories ...string) []string {
	if len(categories) == 0 {
		for category := range CategoryToSubreddits {
			categories = append(categories, category)
		}
	}

	seen := make(map[string]struct{})
	var subs []string
	for _, category := range categories {
		for _, sub := range CategoryToSubreddits[category] {
			if _, ok := seen[sub]; ok {
				continue
			}
			seen[sub] = struct{}{}
			subs = append(subs, sub)
		}
	}
	sort.Strings(subs)
	return subs
}
