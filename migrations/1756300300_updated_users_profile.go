package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

// Profile fields the queue core and the verification flow rely on.
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

		users.Fields.Add(
			&core.SelectField{Name: "role", MaxSelect: 1, Values: []string{"customer", "salon_owner"}},
			&core.TextField{Name: "phone", Max: 30},
			&core.NumberField{Name: "loyalty_points", OnlyInt: true, Min: types.Pointer(0.0)},
			&core.RelationField{Name: "favorite_salons", MaxSelect: 100, CollectionId: salons.Id},
			&core.BoolField{Name: "verified_account"},
			&core.TextField{Name: "otp_hash", Max: 100, Hidden: true},
			&core.DateField{Name: "otp_expiry", Hidden: true},
		)
		return app.Save(users)
	}, func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		for _, name := range []string{"role", "phone", "loyalty_points", "favorite_salons", "verified_account", "otp_hash", "otp_expiry"} {
			users.Fields.RemoveByName(name)
		}
		return app.Save(users)
	})
}
