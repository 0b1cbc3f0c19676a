//go:build ignore

// Command validate_cards checks a card set file before it ships: every
// definition must build into a catalog, every spell script and artifact
// trigger must parse, and the deck counts must reference known cards.
//
// Usage: go run scripts/validate_cards.go [cards.json]
//
// Without an argument it validates the built-in standard set.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spellstone/spellstone-server-go/internal/catalog"
	"github.com/spellstone/spellstone-server-go/internal/game/effects"
)

func main() {
	var defs []catalog.CardDefinition
	builtin := len(os.Args) <= 1

	if !builtin {
		raw, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatalf("read card set: %v", err)
		}
		if err := json.Unmarshal(raw, &defs); err != nil {
			log.Fatalf("parse card set: %v", err)
		}
		fmt.Printf("Validating %d cards from %s\n", len(defs), os.Args[1])
	} else {
		fmt.Println("Validating built-in standard set")
		cat, err := catalog.Standard()
		if err != nil {
			log.Fatalf("standard set is broken: %v", err)
		}
		defs = cat.All()
	}

	cat, err := catalog.New(defs)
	if err != nil {
		log.Fatalf("catalog rejected the set: %v", err)
	}

	failures := 0
	for _, def := range defs {
		if def.Type == catalog.CardTypeSpell {
			if len(def.SpellEffect) == 0 {
				continue
			}
			if _, err := effects.ParseScript(def.SpellEffect); err != nil {
				fmt.Printf("  ✗ %s: spell script: %v\n", def.ID, err)
				failures++
			}
		}
		for i, ability := range def.ArtifactAbilities {
			if _, err := effects.ParseScript(ability.Effect); err != nil {
				fmt.Printf("  ✗ %s: ability %d: %v\n", def.ID, i, err)
				failures++
			}
		}
	}

	if builtin {
		if _, err := catalog.BuildDeck(cat, catalog.StandardDeckCounts); err != nil {
			fmt.Printf("  ✗ standard deck counts: %v\n", err)
			failures++
		}
	}

	if failures > 0 {
		log.Fatalf("%d validation failures", failures)
	}
	fmt.Printf("✓ %d cards valid\n", len(defs))
}
