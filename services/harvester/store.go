package harvester

import (
	"context"
	"database/sql"

	"menuharvest-backend/lib/scrapers/yelpmenu"
	"menuharvest-backend/lib/textutil"

	_ "modernc.org/sqlite"
)

// Restaurant is the persisted form of a directory business. ExternalID
// is the directory's stable id and the dedup key across runs.
type Restaurant struct {
	Name        string
	Rating      *float64
	ReviewCount *int64
	PriceRange  *string
	ExternalID  string
	Website     string
	Address     string
	Phone       string
	CuisineType string
}

type Menu struct {
	Name         string
	Description  string
	MenuType     string
	DisplayOrder int64
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Save writes a restaurant together with its menu and dishes in a
// single transaction, so a failing dish insert never leaves behind a
// menu-less restaurant or a half-filled menu.
func (s Store) Save(ctx context.Context, r Restaurant, m Menu, items []yelpmenu.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	restaurantId, err := upsertRestaurant(ctx, tx, r)
	if err != nil {
		return err
	}
	menuId, err := insertMenu(ctx, tx, m, restaurantId)
	if err != nil {
		return err
	}
	err = insertDishes(ctx, tx, items, menuId)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// UpsertRestaurant returns the row id for the restaurant's external
// id, inserting only when it was never seen before. Existing rows are
// never updated.
func (s Store) UpsertRestaurant(ctx context.Context, r Restaurant) (int64, error) {
	return upsertRestaurant(ctx, s.db, r)
}

func (s Store) InsertMenu(ctx context.Context, m Menu, restaurantId int64) (int64, error) {
	return insertMenu(ctx, s.db, m, restaurantId)
}

func (s Store) InsertDishes(ctx context.Context, items []yelpmenu.Item, menuId int64) error {
	return insertDishes(ctx, s.db, items, menuId)
}

func upsertRestaurant(ctx context.Context, q dbtx, r Restaurant) (int64, error) {
	var id int64
	err := q.QueryRowContext(
		ctx,
		"SELECT id FROM restaurant WHERE external_id = ?",
		r.ExternalID,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := q.ExecContext(
		ctx,
		`INSERT INTO restaurant
			(name, rating, review_count, price_range, external_id, website, address, phone, cuisine_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name,
		r.Rating,
		r.ReviewCount,
		r.PriceRange,
		r.ExternalID,
		r.Website,
		r.Address,
		r.Phone,
		r.CuisineType,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertMenu(ctx context.Context, q dbtx, m Menu, restaurantId int64) (int64, error) {
	res, err := q.ExecContext(
		ctx,
		`INSERT INTO menu (restaurant_id, name, description, menu_type, display_order)
		VALUES (?, ?, ?, ?, ?)`,
		restaurantId,
		m.Name,
		m.Description,
		m.MenuType,
		m.DisplayOrder,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertDishes(ctx context.Context, q dbtx, items []yelpmenu.Item, menuId int64) error {
	for i, item := range items {
		var price *float64
		if v, ok := textutil.ParsePrice(item.PriceText); ok {
			price = &v
		}

		_, err := q.ExecContext(
			ctx,
			`INSERT INTO dish (menu_id, name, description, price, display_order)
			VALUES (?, ?, ?, ?, ?)`,
			menuId,
			item.Name,
			item.Description,
			price,
			int64(i),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
