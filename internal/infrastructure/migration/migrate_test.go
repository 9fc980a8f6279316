package migration

import (
	"testing"
	"testing/fstest"

	"github.com/coopelec/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	t.Run("pairs up and down files", func(t *testing.T) {
		files := fstest.MapFS{
			"000002_readings.up.sql":   {Data: []byte("CREATE TABLE b ();")},
			"000002_readings.down.sql": {Data: []byte("DROP TABLE b;")},
			"000001_catalog.up.sql":    {Data: []byte("CREATE TABLE a ();")},
			"000001_catalog.down.sql":  {Data: []byte("DROP TABLE a;")},
			"README.md":                {Data: []byte("notes")},
		}

		names, err := List(files)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_catalog", "000002_readings"}, names)
	})

	t.Run("embedded schema", func(t *testing.T) {
		names, err := List(migrations.FS)
		require.NoError(t, err)
		assert.Equal(t, []string{"000001_catalog", "000002_readings"}, names)
	})
}

func TestEmbeddedMigrations_HaveDownFiles(t *testing.T) {
	names, err := List(migrations.FS)
	require.NoError(t, err)
	for _, name := range names {
		_, err := migrations.FS.Open(name + ".down.sql")
		assert.NoError(t, err, name)
	}
}
