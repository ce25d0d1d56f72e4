package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

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

		reviews := core.NewBaseCollection("reviews")
		reviews.Fields.Add(
			&core.RelationField{Name: "salon", Required: true, MaxSelect: 1, CollectionId: salons.Id, CascadeDelete: true},
			&core.RelationField{Name: "user", Required: true, MaxSelect: 1, CollectionId: users.Id},
			&core.NumberField{Name: "rating", Required: true, OnlyInt: true, Min: types.Pointer(1.0), Max: types.Pointer(5.0)},
			&core.TextField{Name: "comment", Max: 2000},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		reviews.AddIndex("idx_reviews_salon", false, "salon", "")
		reviews.ListRule = types.Pointer("")
		reviews.ViewRule = types.Pointer("")
		reviews.CreateRule = types.Pointer("@request.auth.id != '' && @request.body.user = @request.auth.id")
		reviews.DeleteRule = types.Pointer("user = @request.auth.id")
		if err := app.Save(reviews); err != nil {
			return err
		}

		// Photo records hold hosted URLs only; file storage stays external.
		photos := core.NewBaseCollection("salon_photos")
		photos.Fields.Add(
			&core.RelationField{Name: "salon", Required: true, MaxSelect: 1, CollectionId: salons.Id, CascadeDelete: true},
			&core.URLField{Name: "url", Required: true},
			&core.TextField{Name: "public_id", Max: 200},
			&core.AutodateField{Name: "created", OnCreate: true},
		)
		photos.ListRule = types.Pointer("")
		photos.ViewRule = types.Pointer("")
		photos.CreateRule = types.Pointer("salon.owner = @request.auth.id")
		photos.DeleteRule = types.Pointer("salon.owner = @request.auth.id")
		return app.Save(photos)
	}, func(app core.App) error {
		for _, name := range []string{"salon_photos", "reviews"} {
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
