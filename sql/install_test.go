package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/sqlevent/event"
	"github.com/kroma-labs/sqlevent/sql/mocks"
)

func TestInstall(t *testing.T) {
	installedRec := event.NewRecorder()
	restore := Install(event.NewClient(installedRec))

	t.Run("given an installed client and no WithClient, then uses the installed client", func(t *testing.T) {
		db, err := OpenDB(newConnector(t, execDeleteConn(t)))
		require.NoError(t, err)
		defer db.Close()

		_, err = db.ExecContext(context.Background(), "DELETE FROM animals")
		require.NoError(t, err)
		assert.Equal(t, 1, installedRec.Len())
	})

	t.Run("given WithClient, then the installed client is ignored", func(t *testing.T) {
		explicit := event.NewRecorder()
		db, err := OpenDB(newConnector(t, execDeleteConn(t)), WithClient(event.NewClient(explicit)))
		require.NoError(t, err)
		defer db.Close()

		before := installedRec.Len()
		_, err = db.ExecContext(context.Background(), "DELETE FROM animals")
		require.NoError(t, err)
		assert.Equal(t, 1, explicit.Len())
		assert.Equal(t, before, installedRec.Len())
	})

	restore()

	t.Run("given restore, then no fallback remains", func(t *testing.T) {
		_, err := OpenDB(mocks.NewConnector(t))
		assert.ErrorIs(t, err, ErrNoClient)
	})
}
