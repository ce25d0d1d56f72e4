package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

// salons, services and offers: the catalog the queue core validates
// against. CRUD goes through the PocketBase record API; the rules below
// keep writes owner-only while reads stay public.
func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		salons := core.NewBaseCollection("salons")
		salons.Fields.Add(
			&core.TextField{Name: "name", Required: true, Max: 200},
			&core.RelationField{Name: "owner", Required: true, MaxSelect: 1, CollectionId: users.Id},
			&core.TextField{Name: "location", Required: true, Max: 300},
			&core.SelectField{Name: "type", MaxSelect: 1, Values: []string{"men", "women", "unisex"}},
			&core.TextField{Name: "description", Max: 2000},
			&core.TextField{Name: "contact_number", Max: 30},
			&core.TextField{Name: "opening_hours", Max: 200},
			&core.NumberField{Name: "rating", Min: types.Pointer(0.0), Max: types.Pointer(5.0)},
			&core.URLField{Name: "image_url"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		salons.ListRule = types.Pointer("")
		salons.ViewRule = types.Pointer("")
		salons.CreateRule = types.Pointer("@request.auth.id != '' && @request.body.owner = @request.auth.id")
		salons.UpdateRule = types.Pointer("owner = @request.auth.id")
		salons.DeleteRule = types.Pointer("owner = @request.auth.id")
		if err := app.Save(salons); err != nil {
			return err
		}

		services := core.NewBaseCollection("services")
		services.Fields.Add(
			&core.RelationField{Name: "salon", Required: true, MaxSelect: 1, CollectionId: salons.Id, CascadeDelete: true},
			&core.TextField{Name: "name", Required: true, Max: 200},
			&core.TextField{Name: "description", Max: 1000},
			&core.NumberField{Name: "price", Required: true, Min: types.Pointer(0.0)},
			// minutes; 0 means "use the salon default"
			&core.NumberField{Name: "duration", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		services.ListRule = types.Pointer("")
		services.ViewRule = types.Pointer("")
		services.CreateRule = types.Pointer("salon.owner = @request.auth.id")
		services.UpdateRule = types.Pointer("salon.owner = @request.auth.id")
		services.DeleteRule = types.Pointer("salon.owner = @request.auth.id")
		if err := app.Save(services); err != nil {
			return err
		}

		offers := core.NewBaseCollection("offers")
		offers.Fields.Add(
			&core.RelationField{Name: "salon", Required: true, MaxSelect: 1, CollectionId: salons.Id, CascadeDelete: true},
			&core.TextField{Name: "title", Required: true, Max: 200},
			&core.TextField{Name: "description", Max: 1000},
			// percent off the running total
			&core.NumberField{Name: "discount", Required: true, Min: types.Pointer(0.0), Max: types.Pointer(100.0)},
			&core.DateField{Name: "valid_from"},
			&core.DateField{Name: "valid_until"},
			&core.BoolField{Name: "is_active"},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		offers.ListRule = types.Pointer("")
		offers.ViewRule = types.Pointer("")
		offers.CreateRule = types.Pointer("salon.owner = @request.auth.id")
		offers.UpdateRule = types.Pointer("salon.owner = @request.auth.id")
		offers.DeleteRule = types.Pointer("salon.owner = @request.auth.id")
		return app.Save(offers)
	}, func(app core.App) error {
		for _, name := range []string{"offers", "services", "salons"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				return err
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
