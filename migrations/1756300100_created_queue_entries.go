package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

// queue_entries is written exclusively by the lifecycle manager, so the
// record API exposes it read-only: owners see their salon's entries,
// customers their own.
func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		salons, err := app.FindCollectionByNameOrId("salons")
		if err != nil {
			return err
		}
		services, err := app.FindCollectionByNameOrId("services")
		if err != nil {
			return err
		}
		offers, err := app.FindCollectionByNameOrId("offers")
		if err != nil {
			return err
		}

		entries := core.NewBaseCollection("queue_entries")
		entries.Fields.Add(
			&core.RelationField{Name: "salon", Required: true, MaxSelect: 1, CollectionId: salons.Id},
			&core.RelationField{Name: "user", Required: true, MaxSelect: 1, CollectionId: users.Id},
			&core.RelationField{Name: "services", Required: true, MaxSelect: 20, CollectionId: services.Id},
			&core.NumberField{Name: "total_price", Min: types.Pointer(0.0)},
			&core.RelationField{Name: "applied_offers", MaxSelect: 20, CollectionId: offers.Id},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{
				"waiting", "in_progress", "completed", "cancelled", "no_show",
			}},
			// 0-based rank in the waiting set; -1 outside of it
			&core.NumberField{Name: "position", OnlyInt: true},
			&core.DateField{Name: "joined_at", Required: true},
			&core.DateField{Name: "served_at"},
			&core.DateField{Name: "closed_at"},
		)
		entries.AddIndex("idx_queue_entries_salon_status", false, "salon, status", "")
		entries.AddIndex("idx_queue_entries_user", false, "user", "")
		entries.ListRule = types.Pointer("user = @request.auth.id || salon.owner = @request.auth.id")
		entries.ViewRule = types.Pointer("user = @request.auth.id || salon.owner = @request.auth.id")
		return app.Save(entries)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("queue_entries")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
