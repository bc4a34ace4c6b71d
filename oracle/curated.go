package oracle

import (
	"context"
	"fmt"
	"strings"

	"launchpad/models"
)

// Curated is the program's hand-picked resource shelf. It backs /resources
// when the inference service is down and serves as the Client in local runs
// without an endpoint.
var Curated = []Resource{
	{Title: "Customer discovery interview guide", URL: "https://www.ycombinator.com/library/6g-how-to-talk-to-users", Kind: "validation"},
	{Title: "The Mom Test", URL: "https://www.momtestbook.com/", Kind: "validation"},
	{Title: "Lean Canvas", URL: "https://leanstack.com/lean-canvas", Kind: "idea"},
	{Title: "How to plan an MVP", URL: "https://www.ycombinator.com/library/4Q-a-minimum-viable-product-is-not-a-product-it-s-a-process", Kind: "mvp"},
	{Title: "Startup pitch deck template", URL: "https://www.ycombinator.com/library/2u-how-to-build-your-seed-round-pitch-deck", Kind: "fundraising"},
	{Title: "Do things that don't scale", URL: "https://paulgraham.com/ds.html", Kind: "growth"},
	{Title: "Launch checklist", URL: "https://www.ycombinator.com/library/4F-how-to-launch-again-and-again", Kind: "launch"},
}

// CuratedFor returns curated resources whose title or kind mentions topic,
// or the whole shelf when nothing matches.
func CuratedFor(topic string) []Resource {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return append([]Resource(nil), Curated...)
	}
	var out []Resource
	for _, r := range Curated {
		if strings.Contains(strings.ToLower(r.Title), topic) || strings.Contains(topic, r.Kind) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return append([]Resource(nil), Curated...)
	}
	return out
}

// Offline is a Client that never reaches a model. It answers with curated
// resources only.
type Offline struct{}

func (Offline) Answer(ctx context.Context, query string, role models.Role, c Context) (Answer, error) {
	res := CuratedFor(query)
	return Answer{
		Text:      fmt.Sprintf("The Oracle is running offline. Here are %d curated resources that may help.", len(res)),
		Resources: res,
	}, nil
}
