package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/UnendingLoop/LostAndFound/internal/model"
)

// maxPage keeps (page-1)*limit far from int overflow
const maxPage = 1_000_000

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Page > maxPage {
		req.Page = maxPage
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валидируем поле типа сортировки
	req.Sort = strings.TrimSpace(strings.ToLower(req.Sort))
	switch {
	case strings.Contains(req.Sort, model.ByTitle):
		req.Sort = "title"
	case strings.Contains(req.Sort, model.ByFound):
		req.Sort = "date_found"
	default:
		req.Sort = "created_at" // по дефолту ставим сортировку по времени создания
	}

	// Валидируем порядок
	req.Order = strings.TrimSpace(strings.ToLower(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

func validateNormalizeItemInfo(raw *model.ItemCreateData, clean *model.Item, now time.Time) error {
	if raw == nil {
		return model.ErrEmptyTitle
	}

	clean.Title = strings.TrimSpace(raw.Title)
	if !fieldLenOK(clean.Title, model.MaxTitleLen) {
		return model.ErrEmptyTitle
	}

	clean.Description = strings.TrimSpace(raw.Description)
	if !fieldLenOK(clean.Description, model.MaxDescriptionLen) {
		return model.ErrEmptyDesc
	}

	date, err := parseDateFound(raw.DateFound, now)
	if err != nil {
		return err
	}
	clean.DateFound = date

	clean.LocationFound = strings.TrimSpace(raw.LocationFound)
	if !fieldLenOK(clean.LocationFound, model.MaxLocationLen) {
		return model.ErrEmptyLocation
	}

	if raw.Image == nil || raw.Image.File == nil {
		return model.ErrImageRequired
	}
	return nil
}

func fieldLenOK(s string, max int) bool {
	n := utf8.RuneCountInString(s)
	return n > 0 && n <= max
}

// parseDateFound accepts YYYY-MM-DD no later than today (UTC).
func parseDateFound(raw string, now time.Time) (time.Time, error) {
	date, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, model.ErrIncorrectDate
	}

	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if date.After(today) {
		return time.Time{}, model.ErrIncorrectDate
	}
	return date, nil
}
