// Command demo plays a short scripted game against an in-memory store and
// prints the resulting game log, useful for eyeballing engine behavior
// without a client.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/spellstone/spellstone-server-go/internal/catalog"
	"github.com/spellstone/spellstone-server-go/internal/game"
	"github.com/spellstone/spellstone-server-go/internal/game/targeting"
	"github.com/spellstone/spellstone-server-go/internal/store"
)

func main() {
	ctx := context.Background()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	cat, err := catalog.Standard()
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	mem := store.NewMemory()
	engine := game.NewEngine(mem, cat, game.DefaultRules(), logger)

	gameID, err := engine.CreateGame(ctx, []string{"alice", "bob"}, "")
	if err != nil {
		log.Fatalf("create game: %v", err)
	}
	if err := engine.StartGame(ctx, gameID); err != nil {
		log.Fatalf("start game: %v", err)
	}

	// Deal a fixed scenario so the demo is repeatable.
	_, err = mem.Apply(ctx, gameID, func(s *game.GameState) error {
		s.Hands["alice"] = []string{"ember_whelp", "fire_bolt"}
		s.Hands["bob"] = []string{"stone_guardian"}
		s.PlayerStates["alice"].Energy = 5
		s.PlayerStates["bob"].Energy = 5
		return nil
	})
	if err != nil {
		log.Fatalf("arrange: %v", err)
	}

	mustPlay := func(player, card string) {
		ok, err := engine.PlayCard(ctx, gameID, player, card)
		if err != nil || !ok {
			log.Fatalf("%s could not play %s: ok=%v err=%v", player, card, ok, err)
		}
	}
	mustEndTurn := func(player string) {
		ok, err := engine.EndTurn(ctx, gameID, player)
		if err != nil || !ok {
			log.Fatalf("%s could not end turn: ok=%v err=%v", player, ok, err)
		}
	}

	mustPlay("alice", "ember_whelp")
	mustEndTurn("alice")
	mustPlay("bob", "stone_guardian")
	mustEndTurn("bob")

	// Cast a targeted spell, answering the prompt like a client would.
	prompts := make(chan game.Event, 1)
	engine.Bus().SubscribeTyped(game.EventTargetingPrompt, func(ev game.Event) {
		select {
		case prompts <- ev:
		default:
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		ok, err := engine.CastSpell(ctx, gameID, "alice", "fire_bolt")
		if err != nil || !ok {
			log.Fatalf("fire bolt fizzled: ok=%v err=%v", ok, err)
		}
	}()

	select {
	case ev := <-prompts:
		fmt.Printf("\nPrompt: %s\n", ev.Description)
	case <-time.After(5 * time.Second):
		log.Fatal("no targeting prompt")
	}
	if err := engine.HandleTargetClick(gameID, targeting.Target{
		Kind: targeting.KindPlayer, PlayerID: "bob",
	}); err != nil {
		log.Fatalf("target click: %v", err)
	}
	if err := engine.ConfirmTargets(gameID, nil); err != nil {
		log.Fatalf("confirm: %v", err)
	}
	<-done

	entries, err := engine.GameLog(ctx, gameID)
	if err != nil {
		log.Fatalf("game log: %v", err)
	}

	fmt.Println("\n=== Game log ===")
	for _, entry := range entries {
		fmt.Printf("[%-13s] %s\n", entry.Action, entry.Description)
	}

	state, err := engine.State(ctx, gameID)
	if err != nil {
		log.Fatalf("state: %v", err)
	}
	fmt.Println("\n=== Final state ===")
	for _, id := range state.Players {
		ps := state.PlayerStates[id]
		fmt.Printf("%s: %d/%d health, %d/%d energy, %d in hand, %d on board\n",
			id, ps.Health, ps.MaxHealth, ps.Energy, ps.MaxEnergy,
			len(state.Hands[id]), len(state.Battlefields[id]))
	}
	fmt.Printf("checksum: %s\n", game.Checksum(state))
}
