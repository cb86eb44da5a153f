package harvester

import (
	"context"
	"testing"
	"time"

	"menuharvest-backend/lib/scrapers/yelpmenu"
	"menuharvest-backend/lib/testutil"
	harvesterdb "menuharvest-backend/services/harvester/db"

	"github.com/stretchr/testify/require"
)

func setupStore(t testing.TB) (Store, func()) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/harvester",
		DbSchema: harvesterdb.Schema,
	})
	return NewStore(res.DB), cleanup
}

func TestUpsertRestaurantIdempotence(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	rating := 4.0
	r := Restaurant{
		Name:       "Test Diner",
		Rating:     &rating,
		ExternalID: "abc",
		Address:    "1 Main St, San Ramon, CA",
	}

	id1, err := store.UpsertRestaurant(ctx, r)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := store.UpsertRestaurant(ctx, r)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, id1, id2)

	var count int
	err = store.db.QueryRow("SELECT COUNT(*) FROM restaurant").Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, count)
}

func TestSave(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	r := Restaurant{
		Name:        "Test Diner",
		ExternalID:  "abc",
		Address:     "1 Main St, San Ramon, CA",
		CuisineType: "American, Diners",
	}
	menu := Menu{
		Name:        "Test Diner Menu",
		Description: "Main menu for Test Diner",
		MenuType:    "main",
	}
	items := []yelpmenu.Item{
		{Name: "Burger", Description: "A classic", PriceText: "$9.99"},
		{Name: "Catch of the Day", Description: "Ask your server", PriceText: ""},
	}

	err := store.Save(ctx, r, menu, items)
	if err != nil {
		t.Fatal(err)
	}

	var menuName, menuType string
	err = store.db.QueryRow(`
		SELECT menu.name, menu.menu_type FROM menu
		JOIN restaurant ON restaurant.id = menu.restaurant_id
		WHERE restaurant.external_id = 'abc'
	`).Scan(&menuName, &menuType)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "Test Diner Menu", menuName)
	require.Equal(t, "main", menuType)

	rows, err := store.db.Query("SELECT name, price FROM dish ORDER BY display_order")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	type dish struct {
		name  string
		price *float64
	}
	var dishes []dish
	for rows.Next() {
		var d dish
		err = rows.Scan(&d.name, &d.price)
		if err != nil {
			t.Fatal(err)
		}
		dishes = append(dishes, d)
	}
	require.Len(t, dishes, 2)
	require.Equal(t, "Burger", dishes[0].name)
	require.NotNil(t, dishes[0].price)
	require.Equal(t, 9.99, *dishes[0].price)
	// unparseable price lands as NULL, not zero
	require.Equal(t, "Catch of the Day", dishes[1].name)
	require.Nil(t, dishes[1].price)
}

func TestSaveTwiceKeepsOneRestaurant(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	r := Restaurant{Name: "Test Diner", ExternalID: "abc"}
	menu := Menu{Name: "Test Diner Menu", MenuType: "main"}
	items := []yelpmenu.Item{{Name: "Burger", PriceText: "$9.99"}}

	err := store.Save(ctx, r, menu, items)
	if err != nil {
		t.Fatal(err)
	}
	err = store.Save(ctx, r, menu, items)
	if err != nil {
		t.Fatal(err)
	}

	var count int
	err = store.db.QueryRow("SELECT COUNT(*) FROM restaurant").Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, count)
}
