package harvester_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spacebio/rag/pkg/harvester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articleHTML() string {
	para := strings.Repeat("Microgravity alters cellular signalling pathways in cultured osteoblasts. ", 8)
	return fmt.Sprintf(`<html>
<head><title>Bone loss in spaceflight</title></head>
<body>
<nav>Site navigation</nav>
<script>tracking();</script>
<h2>Abstract</h2>
<p>%s</p>
<h2>Results and findings</h2>
<p>%s</p>
<p>%s</p>
<h2>Acknowledgements</h2>
<p>Short thanks.</p>
<footer>Journal footer</footer>
</body>
</html>`, para, para, para)
}

func TestHarvest_SectionExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML())
	}))
	defer srv.Close()

	h := harvester.NewWithConfig(harvester.HarvesterConfig{RateLimit: 100})

	docs, err := h.Harvest(context.Background(), []string{srv.URL})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "abstract", docs[0].Section)
	assert.Equal(t, "results", docs[1].Section)
	for _, d := range docs {
		assert.Equal(t, "Bone loss in spaceflight", d.Title)
		assert.Equal(t, srv.URL, d.URL)
		assert.NotEmpty(t, d.ID)
		assert.Contains(t, d.Text, "Microgravity alters cellular signalling")
		assert.NotContains(t, d.Text, "tracking")
		assert.NotContains(t, d.Text, "Site navigation")
	}

	// The short acknowledgements section is dropped.
	for _, d := range docs {
		assert.NotEqual(t, "acknowledgements", d.Section)
	}
}

func TestHarvest_FulltextFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Just one short paragraph with no headings.</p></body></html>`)
	}))
	defer srv.Close()

	h := harvester.NewWithConfig(harvester.HarvesterConfig{RateLimit: 100})

	docs, err := h.Harvest(context.Background(), []string{srv.URL})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "fulltext", docs[0].Section)
	assert.Contains(t, docs[0].Text, "Just one short paragraph")
}

func TestHarvest_SkipsFailedPages(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML())
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	var progressed []string
	h := harvester.NewWithConfig(harvester.HarvesterConfig{
		RateLimit:  100,
		OnProgress: func(url string) { progressed = append(progressed, url) },
	})

	docs, err := h.Harvest(context.Background(), []string{bad.URL, good.URL})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, []string{good.URL}, progressed)
}

func TestHarvest_AllPagesFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	h := harvester.NewWithConfig(harvester.HarvesterConfig{RateLimit: 100})

	_, err := h.Harvest(context.Background(), []string{bad.URL})
	assert.Error(t, err)
}
