package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/abgdnv/storefront/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	// given
	var buf bytes.Buffer
	log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil))).With("component", "cart")
	ctx := web.WithRequestID(context.Background(), "req-7")
	ctx = AppendCtx(ctx, slog.String("cart_action", "add item"))
	ctx = AppendCtx(ctx, slog.Int64("product_id", 3))

	// when
	log.InfoContext(ctx, "Cart add item done")

	// then
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-7", rec["request_id"])
	assert.Equal(t, "add item", rec["cart_action"])
	assert.Equal(t, float64(3), rec["product_id"])
	assert.Equal(t, "cart", rec["component"])
	assert.NotContains(t, rec, "trace_id", "no span in context")
}

func TestAppendCtx_DoesNotAliasParent(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("a", "1"))
	left := AppendCtx(parent, slog.String("b", "2"))
	right := AppendCtx(parent, slog.String("c", "3"))

	assert.Len(t, left.Value(attrsKey{}).([]slog.Attr), 2)
	assert.Equal(t, "c", right.Value(attrsKey{}).([]slog.Attr)[1].Key)
	assert.Equal(t, "b", left.Value(attrsKey{}).([]slog.Attr)[1].Key)
}
