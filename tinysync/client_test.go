package tinysync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) ERPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("TINY_API_BASE_URL", srv.URL)
	t.Setenv("TINY_RATE_LIMIT_PER_MIN", "60000")

	client, err := NewClient("test-token")
	require.NoError(t, err)
	return client
}

func TestNewClientRejectsEmptyToken(t *testing.T) {
	_, err := NewClient("   ")
	require.Error(t, err)
}

func TestClientListProductsParsesEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/produtos.pesquisa.php", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		assert.Equal(t, "json", r.URL.Query().Get("formato"))
		assert.Equal(t, "1", r.URL.Query().Get("pagina"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"retorno":{"status":"OK","produtos":[
			{"id":42,"codigo":"SKU-42","nome":"Creme","preco":"19.90","situacao":"A"}
		]}}`))
	}))

	resp := client.ListProducts(context.Background(), 1, 100)
	require.True(t, resp.OK(), resp.Message)
	require.Len(t, resp.Produtos, 1)
	assert.Equal(t, int64(42), resp.Produtos[0].ID)
	assert.Equal(t, "SKU-42", resp.Produtos[0].Codigo)
}

func TestClientNormalizesApiErrors(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"retorno":{"status":"Erro","erros":[{"erro":"token invalido ou nao informado"}]}}`))
	}))

	resp := client.ListProducts(context.Background(), 1, 100)
	assert.False(t, resp.OK())
	assert.Contains(t, resp.Message, "token invalido")
}

func TestClientNormalizesHttpErrors(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	resp := client.GetContact(context.Background(), 7)
	assert.False(t, resp.OK())
	assert.Contains(t, resp.Message, "502")
}

func TestClientCreateOrderReturnsPedidoId(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pedido.incluir.php", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"retorno":{"status":"OK","pedido":{"id":777}}}`))
	}))

	resp := client.CreateOrder(context.Background(), OrderFields{ClienteId: 1, Situacao: orderSituacaoDraft})
	require.True(t, resp.OK(), resp.Message)
	assert.Equal(t, int64(777), resp.PedidoId)
}

func TestClientCreateContactMissingPayloadIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"retorno":{"status":"OK"}}`))
	}))

	resp := client.CreateContact(context.Background(), ContactFields{Nome: "Maria"})
	assert.False(t, resp.OK())
}
