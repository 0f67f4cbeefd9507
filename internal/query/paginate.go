package query

// DefaultItemsPerPage matches the table page size of the web panel.
const DefaultItemsPerPage = 10

// TotalPages returns the page count for n items, never less than one.
func TotalPages(n, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultItemsPerPage
	}
	if n <= 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}

// ClampPage keeps page within [1, TotalPages(n, perPage)].
func ClampPage(page, n, perPage int) int {
	if page < 1 {
		return 1
	}
	if total := TotalPages(n, perPage); page > total {
		return total
	}
	return page
}

// Paginate returns the slice of items visible on a 1-based page. The result
// aliases items.
func Paginate[T any](items []T, page, perPage int) []T {
	if perPage <= 0 {
		perPage = DefaultItemsPerPage
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(items) {
		return nil
	}
	end := min(start+perPage, len(items))
	return items[start:end]
}
