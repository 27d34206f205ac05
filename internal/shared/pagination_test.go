package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePerPage(t *testing.T) {
	for _, allowed := range []int{5, 10, 25, 50, 100} {
		assert.Equal(t, allowed, NormalizePerPage(allowed))
	}
	assert.Equal(t, DefaultPerPage, NormalizePerPage(0))
	assert.Equal(t, DefaultPerPage, NormalizePerPage(-5))
	assert.Equal(t, DefaultPerPage, NormalizePerPage(33))
	assert.Equal(t, DefaultPerPage, NormalizePerPage(1000))
}

func TestNewPagination(t *testing.T) {
	pg := NewPagination(2, 10, 45)
	assert.Equal(t, 2, pg.Page)
	assert.Equal(t, 5, pg.TotalPages)
	assert.Equal(t, 10, pg.Offset())

	pg = NewPagination(0, 99, 3)
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, DefaultPerPage, pg.PerPage)
	assert.Equal(t, 1, pg.TotalPages)
	assert.Equal(t, 0, pg.Offset())
}

func TestPrevNextPageClamped(t *testing.T) {
	pg := NewPagination(1, 10, 45)
	assert.Equal(t, 1, pg.PrevPage())
	assert.Equal(t, 2, pg.NextPage())

	pg = NewPagination(5, 10, 45)
	assert.Equal(t, 4, pg.PrevPage())
	assert.Equal(t, 5, pg.NextPage())
}

func TestPageRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/users?page=3&per_page=25", nil)
	page, perPage := PageRequest(r)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, perPage)

	r = httptest.NewRequest("GET", "/users?page=-1&per_page=7", nil)
	page, perPage = PageRequest(r)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPerPage, perPage)

	r = httptest.NewRequest("GET", "/users", nil)
	page, perPage = PageRequest(r)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPerPage, perPage)
}
