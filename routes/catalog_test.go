package routes

import (
	"net/http"
	"testing"

	"storefront/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listBody struct {
	Products []productBody `json:"products"`
	Total    int64         `json:"total"`
	Sort     string        `json:"sort"`
}

func titles(products []productBody) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Title)
	}
	return out
}

func TestListProductsSorted(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string][]string{
		"":       {"Ring", "Chain"},
		"price":  {"Chain", "Ring"},
		"-price": {"Ring", "Chain"},
		"color":  {"Ring", "Chain"},
		"-color": {"Chain", "Ring"},
		"size":   {"Ring", "Chain"},
		"-size":  {"Chain", "Ring"},
	}
	for sort, want := range cases {
		t.Run("sort="+sort, func(t *testing.T) {
			resp := env.request(http.MethodGet, "/?sort="+sort, nil, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var body listBody
			decode(t, resp, &body)
			assert.Equal(t, want, titles(body.Products))
			assert.EqualValues(t, 2, body.Total)
		})
	}
}

func TestListProductsCoverAndPaging(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.store.AddGalleryImage(env.ctx, env.ring.ID, "/uploads/ring.jpg")
	require.NoError(t, err)

	resp := env.request(http.MethodGet, "/?skip=1&limit=1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body listBody
	decode(t, resp, &body)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Chain", body.Products[0].Title)
	assert.Equal(t, models.PlaceholderImage, body.Products[0].CoverImage)
	assert.Equal(t, "Silver", body.Products[0].Color)

	resp = env.request(http.MethodGet, "/?limit=1", nil, "")
	decode(t, resp, &body)
	assert.Equal(t, "/uploads/ring.jpg", body.Products[0].CoverImage)
}

func TestListProductsRejectsBadQuery(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(http.MethodGet, "/?sort=weight", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorOf(t, resp).Error, "invalid sort key")

	resp = env.request(http.MethodGet, "/?skip=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid skip parameter", errorOf(t, resp).Error)
}

func TestSortersRoute(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(http.MethodGet, "/sorters", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var groups []struct {
		Title   string `json:"title"`
		Sorters []struct {
			Key string `json:"key"`
		} `json:"sorters"`
	}
	decode(t, resp, &groups)
	require.Len(t, groups, 3)
	assert.Equal(t, "By price", groups[0].Title)
	assert.Equal(t, "-size", groups[2].Sorters[1].Key)
}

func TestTopCategoriesRoute(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(http.MethodGet, "/categories", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var categories []struct {
		Title    string `json:"title"`
		ImageURL string `json:"image_url"`
	}
	decode(t, resp, &categories)
	require.Len(t, categories, 1)
	assert.Equal(t, "Jewelry", categories[0].Title)
	assert.Equal(t, models.PlaceholderImage, categories[0].ImageURL)
}

func TestCategoryDetailCoversSubtree(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(http.MethodGet, "/category/jewelry?sort=price", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Category struct {
			Title string `json:"title"`
		} `json:"category"`
		Subcategories []struct {
			Title string `json:"title"`
		} `json:"subcategories"`
		Products listBody `json:"products"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "Jewelry", body.Category.Title)
	require.Len(t, body.Subcategories, 1)
	assert.Equal(t, "Rings", body.Subcategories[0].Title)
	assert.Equal(t, []string{"Chain", "Ring"}, titles(body.Products.Products))

	resp = env.request(http.MethodGet, "/category/rings", nil, "")
	decode(t, resp, &body)
	assert.Empty(t, body.Subcategories)
	assert.Equal(t, []string{"Ring"}, titles(body.Products.Products))

	resp = env.request(http.MethodGet, "/category/watches", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Category not found", errorOf(t, resp).Error)
}

func TestProductDetail(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.user("ann", false)
	_, err := env.store.AddReview(env.ctx, user.ID, env.ring.ID, "Lovely")
	require.NoError(t, err)
	_, err = env.store.ToggleFavorite(env.ctx, user.ID, "ring")
	require.NoError(t, err)

	type detail struct {
		Product    productBody `json:"product"`
		Reviews    []struct {
			Text   string `json:"text"`
			Author struct {
				Username string `json:"username"`
			} `json:"author"`
		} `json:"reviews"`
		Related    []productBody `json:"related"`
		IsFavorite bool          `json:"is_favorite"`
	}

	resp := env.request(http.MethodGet, "/product/ring", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var anon detail
	decode(t, resp, &anon)
	assert.Equal(t, "Ring", anon.Product.Title)
	require.Len(t, anon.Reviews, 1)
	assert.Equal(t, "ann", anon.Reviews[0].Author.Username)
	assert.Empty(t, anon.Related)
	assert.False(t, anon.IsFavorite)

	resp = env.request(http.MethodGet, "/product/ring", nil, token)
	var mine detail
	decode(t, resp, &mine)
	assert.True(t, mine.IsFavorite)

	resp = env.request(http.MethodGet, "/product/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCitiesRoute(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(http.MethodGet, "/cities", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cities []models.City
	decode(t, resp, &cities)
	require.Len(t, cities, 1)
	assert.Equal(t, "Dubai", cities[0].CityName)
}
