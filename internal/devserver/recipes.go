package devserver

import (
	"encoding/json"
	"fmt"

	"github.com/tasteos/cookmode/internal/session"
)

// cloneSession deep-copies a session through its JSON form. Sessions are
// small; round-tripping keeps the copy honest as the model grows.
func cloneSession(s *session.CookSession) (*session.CookSession, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to clone session: %w", err)
	}
	var out session.CookSession
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to clone session: %w", err)
	}
	return &out, nil
}

// builtinRecipes is the development catalog. Durations are realistic so
// timers behave sensibly when cooking against the dev server.
func builtinRecipes() []*session.Recipe {
	return []*session.Recipe{
		{
			ID:       "rec_risotto",
			Name:     "Mushroom Risotto",
			Servings: 2,
			Ingredients: []session.Ingredient{
				{Name: "arborio rice", Quantity: 150, Unit: "g"},
				{Name: "mushrooms", Quantity: 200, Unit: "g"},
				{Name: "vegetable stock", Quantity: 750, Unit: "ml"},
				{Name: "white wine", Quantity: 100, Unit: "ml"},
				{Name: "parmesan", Quantity: 40, Unit: "g"},
				{Name: "butter", Quantity: 30, Unit: "g"},
				{Name: "onion", Quantity: 1},
			},
			Steps: []session.Step{
				{
					Title:   "Prep",
					Bullets: []string{"dice the onion", "slice the mushrooms", "warm the stock in a pot"},
				},
				{
					Title:       "Brown the mushrooms",
					Bullets:     []string{"high heat, knob of butter", "don't crowd the pan", "set aside when golden"},
					DurationSec: 360,
				},
				{
					Title:       "Toast the rice",
					Bullets:     []string{"soften onion first", "add rice, stir until translucent", "deglaze with wine"},
					DurationSec: 240,
				},
				{
					Title:       "Add stock gradually",
					Bullets:     []string{"one ladle at a time", "stir often", "taste at 15 minutes"},
					DurationSec: 1080,
				},
				{
					Title:   "Finish",
					Bullets: []string{"fold in mushrooms", "butter and parmesan off heat", "rest two minutes"},
				},
			},
		},
		{
			ID:       "rec_roast_chicken",
			Name:     "Weeknight Roast Chicken",
			Servings: 4,
			Ingredients: []session.Ingredient{
				{Name: "whole chicken", Quantity: 1.5, Unit: "kg"},
				{Name: "lemon", Quantity: 1},
				{Name: "garlic head", Quantity: 1},
				{Name: "olive oil", Quantity: 2, Unit: "tbsp"},
				{Name: "potatoes", Quantity: 800, Unit: "g"},
			},
			Steps: []session.Step{
				{
					Title:   "Prep",
					Bullets: []string{"heat oven to 220C", "pat chicken dry", "halve the potatoes"},
				},
				{
					Title:   "Season",
					Bullets: []string{"oil and salt all over", "lemon and garlic in the cavity", "potatoes around the bird"},
				},
				{
					Title:       "Roast",
					Bullets:     []string{"middle shelf", "baste at the halfway mark"},
					DurationSec: 3300,
				},
				{
					Title:       "Rest",
					Bullets:     []string{"tent with foil", "crisp the potatoes meanwhile"},
					DurationSec: 600,
				},
			},
		},
	}
}
