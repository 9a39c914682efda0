// Package itempostgres keeps item records in PostgreSQL
package itempostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/UnendingLoop/LostAndFound/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

// sort keys accepted by GetList; anything else falls back to created_at
var sortColumns = map[string]string{
	"created_at": "created_at",
	"title":      "title",
	"date_found": "date_found",
}

func (p PostgresRepo) Create(ctx context.Context, n *model.Item) error {
	query := `INSERT INTO items (item_uid, title, description, date_found, location_found, image_file, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := p.DB.Master.ExecContext(ctx, query, n.UID, n.Title, n.Description, n.DateFound, n.LocationFound, n.ImageFile, n.CreatedAt, n.UpdatedAt)
	return err
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Item, error) {
	query := `SELECT item_uid, title, description, date_found, location_found, image_file, created_at, updated_at
	FROM items
	WHERE item_uid = $1`
	var item model.Item

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&item.UID,
		&item.Title,
		&item.Description,
		&item.DateFound,
		&item.LocationFound,
		&item.ImageFile,
		&item.CreatedAt,
		&item.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrItemNotFound
		default:
			return nil, err // 500
		}
	}
	return &item, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Item, error) {
	column, ok := sortColumns[req.Sort]
	if !ok {
		column = "created_at"
	}
	order := "DESC"
	if req.Order == "ASC" {
		order = "ASC"
	}

	query := fmt.Sprintf(`SELECT item_uid, title, description, date_found, location_found, image_file, created_at, updated_at
	FROM items
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, column, order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	items := make([]model.Item, 0, req.Limit)
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(&item.UID,
			&item.Title,
			&item.Description,
			&item.DateFound,
			&item.LocationFound,
			&item.ImageFile,
			&item.CreatedAt,
			&item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return items, nil
}

// UpdateImage sets the stored image file name; an empty name means the item has no image.
func (p PostgresRepo) UpdateImage(ctx context.Context, id string, imageFile string) error {
	query := `UPDATE items SET image_file = $1, updated_at = now() WHERE item_uid = $2`
	res, err := p.DB.Master.ExecContext(ctx, query, imageFile, id)
	if err != nil {
		return err // 500
	}
	return expectOneRow(res)
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM items
	WHERE item_uid = $1`

	res, err := p.DB.Master.ExecContext(ctx, query, id)
	if err != nil {
		return err // 500
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrItemNotFound // 404
	}
	return nil
}
