package listing

const (
	ModeServer = "server"
	ModeClient = "client"
)

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ReconcileMode reports which side's counts are authoritative for the page.
func ReconcileMode[T any](page RemotePage[T], clientOnly []string) string {
	if len(clientOnly) > 0 || page.Pagination == nil {
		return ModeClient
	}
	return ModeServer
}

// Reconcile produces the final pagination for a page of records. When any
// client-only dimension was applied, or the upstream sent no pagination, the
// counts are recomputed from filtered. Otherwise the upstream values are used,
// with anything missing or inconsistent computed instead. It never fails.
func Reconcile[T any](page RemotePage[T], filtered []T, clientOnly []string, requestedPage, pageSize int) Pagination {
	if requestedPage < 1 {
		requestedPage = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	if ReconcileMode(page, clientOnly) == ModeClient {
		total := len(filtered)
		totalPages := totalPagesFor(total, pageSize)
		return Pagination{
			Page:       clampPage(requestedPage, totalPages),
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
		}
	}

	srv := page.Pagination
	size := pageSize
	if srv.PageSize > 0 {
		size = srv.PageSize
	}
	current := requestedPage
	if srv.Page > 0 {
		current = srv.Page
	}
	total := srv.Total
	if !srv.HasTotal || total < 0 {
		total = (current-1)*size + len(filtered)
	}
	// An upstream totalPages that disagrees with total is ignored; total wins.
	totalPages := totalPagesFor(total, size)
	return Pagination{
		Page:       clampPage(current, totalPages),
		PageSize:   size,
		Total:      total,
		TotalPages: totalPages,
	}
}

func totalPagesFor(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

func clampPage(page, totalPages int) int {
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}
