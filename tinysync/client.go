package tinysync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the normalized outcome of every ERP call. Expected failures
// (HTTP errors, API-level "Erro" responses) never surface as Go errors;
// they come back as Status=error with the ERP's message.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (r Result) OK() bool { return r.Status == StatusSuccess }

func successResult() Result { return Result{Status: StatusSuccess} }

func errorResult(message string) Result {
	return Result{Status: StatusError, Message: message}
}

type Contact struct {
	ID            int64  `json:"id"`
	Nome          string `json:"nome"`
	TipoPessoa    string `json:"tipo_pessoa"`
	CpfCnpj       string `json:"cpf_cnpj"`
	Email         string `json:"email"`
	Fone          string `json:"fone"`
	Celular       string `json:"celular"`
	Endereco      string `json:"endereco"`
	Numero        string `json:"numero"`
	Complemento   string `json:"complemento"`
	Bairro        string `json:"bairro"`
	Cep           string `json:"cep"`
	Cidade        string `json:"cidade"`
	Uf            string `json:"uf"`
	DataAlteracao string `json:"data_alteracao"`
}

// ContactFields is the outbound contact payload. Address fields are only
// set when the street line is present.
type ContactFields struct {
	Nome        string `json:"nome"`
	TipoPessoa  string `json:"tipo_pessoa"`
	CpfCnpj     string `json:"cpf_cnpj"`
	Email       string `json:"email,omitempty"`
	Fone        string `json:"fone,omitempty"`
	Celular     string `json:"celular,omitempty"`
	Endereco    string `json:"endereco,omitempty"`
	Numero      string `json:"numero,omitempty"`
	Complemento string `json:"complemento,omitempty"`
	Bairro      string `json:"bairro,omitempty"`
	Cep         string `json:"cep,omitempty"`
	Cidade      string `json:"cidade,omitempty"`
	Uf          string `json:"uf,omitempty"`
}

type RemoteProduto struct {
	ID            int64       `json:"id"`
	Codigo        string      `json:"codigo"`
	Nome          string      `json:"nome"`
	Preco         json.Number `json:"preco"`
	Categoria     string      `json:"categoria"`
	Situacao      string      `json:"situacao"`
	DataAlteracao string      `json:"data_alteracao"`
}

type OrderItemFields struct {
	ProdutoId     int64  `json:"produto_id"`
	Descricao     string `json:"descricao"`
	Quantidade    string `json:"quantidade"`
	ValorUnitario string `json:"valor_unitario"`
}

type OrderFields struct {
	ClienteId  int64             `json:"cliente_id"`
	Situacao   string            `json:"situacao"`
	Observacao string            `json:"obs,omitempty"`
	Itens      []OrderItemFields `json:"itens"`
}

type ListProductsResponse struct {
	Result
	Produtos []RemoteProduto
}

type ContactResponse struct {
	Result
	Contato Contact
}

type OrderResponse struct {
	Result
	PedidoId int64
}

// ERPClient is the boundary to the Tiny ERP REST API. Sync jobs depend on
// this interface; tests substitute a fake.
type ERPClient interface {
	ListProducts(ctx context.Context, page int, pageSize int) ListProductsResponse
	GetContact(ctx context.Context, id int64) ContactResponse
	CreateContact(ctx context.Context, fields ContactFields) ContactResponse
	UpdateContact(ctx context.Context, id int64, fields ContactFields) ContactResponse
	CreateOrder(ctx context.Context, fields OrderFields) OrderResponse
}

type tinyClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter <-chan time.Time
}

func NewClient(token string) (ERPClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("TINY_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.tiny.com.br/api2"
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("tiny api token is empty")
	}
	rateLimitPerMin := int64(30)
	if v := strings.TrimSpace(os.Getenv("TINY_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &tinyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: time.Tick(interval),
	}, nil
}

// retorno is the envelope every Tiny endpoint wraps its payload in.
type retorno struct {
	Retorno struct {
		Status string `json:"status"`
		Erros  []struct {
			Erro string `json:"erro"`
		} `json:"erros"`
		Contato  *Contact        `json:"contato"`
		Produtos []RemoteProduto `json:"produtos"`
		Pedido   *struct {
			ID int64 `json:"id"`
		} `json:"pedido"`
	} `json:"retorno"`
}

func (r retorno) errorMessage() string {
	if len(r.Retorno.Erros) > 0 {
		msgs := make([]string, 0, len(r.Retorno.Erros))
		for _, e := range r.Retorno.Erros {
			msgs = append(msgs, e.Erro)
		}
		return strings.Join(msgs, "; ")
	}
	return "tiny api returned status " + r.Retorno.Status
}

func (c *tinyClient) call(ctx context.Context, method string, path string, params url.Values, body interface{}) (retorno, Result) {
	<-c.limiter

	endpoint := c.baseURL + path
	if params == nil {
		params = url.Values{}
	}
	params.Set("token", c.token)
	params.Set("formato", "json")
	endpoint = endpoint + "?" + params.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return retorno{}, errorResult(err.Error())
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return retorno{}, errorResult(err.Error())
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return retorno{}, errorResult(err.Error())
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return retorno{}, errorResult(fmt.Sprintf("tiny api error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var parsed retorno
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return retorno{}, errorResult("invalid tiny api response: " + err.Error())
	}
	if !strings.EqualFold(parsed.Retorno.Status, "OK") {
		return parsed, errorResult(parsed.errorMessage())
	}
	return parsed, successResult()
}

func (c *tinyClient) ListProducts(ctx context.Context, page int, pageSize int) ListProductsResponse {
	params := url.Values{}
	params.Set("pagina", strconv.Itoa(page))
	params.Set("limite", strconv.Itoa(pageSize))
	parsed, res := c.call(ctx, http.MethodGet, "/produtos.pesquisa.php", params, nil)
	if !res.OK() {
		return ListProductsResponse{Result: res}
	}
	return ListProductsResponse{Result: res, Produtos: parsed.Retorno.Produtos}
}

func (c *tinyClient) GetContact(ctx context.Context, id int64) ContactResponse {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(id, 10))
	parsed, res := c.call(ctx, http.MethodGet, "/contato.obter.php", params, nil)
	if !res.OK() {
		return ContactResponse{Result: res}
	}
	if parsed.Retorno.Contato == nil {
		return ContactResponse{Result: errorResult("tiny api response missing contact")}
	}
	return ContactResponse{Result: res, Contato: *parsed.Retorno.Contato}
}

func (c *tinyClient) CreateContact(ctx context.Context, fields ContactFields) ContactResponse {
	parsed, res := c.call(ctx, http.MethodPost, "/contato.incluir.php", nil, map[string]interface{}{"contato": fields})
	if !res.OK() {
		return ContactResponse{Result: res}
	}
	if parsed.Retorno.Contato == nil {
		return ContactResponse{Result: errorResult("tiny api response missing contact")}
	}
	return ContactResponse{Result: res, Contato: *parsed.Retorno.Contato}
}

func (c *tinyClient) UpdateContact(ctx context.Context, id int64, fields ContactFields) ContactResponse {
	params := url.Values{}
	params.Set("id", strconv.FormatInt(id, 10))
	parsed, res := c.call(ctx, http.MethodPost, "/contato.alterar.php", params, map[string]interface{}{"contato": fields})
	if !res.OK() {
		return ContactResponse{Result: res}
	}
	contato := Contact{ID: id}
	if parsed.Retorno.Contato != nil {
		contato = *parsed.Retorno.Contato
	}
	return ContactResponse{Result: res, Contato: contato}
}

func (c *tinyClient) CreateOrder(ctx context.Context, fields OrderFields) OrderResponse {
	parsed, res := c.call(ctx, http.MethodPost, "/pedido.incluir.php", nil, map[string]interface{}{"pedido": fields})
	if !res.OK() {
		return OrderResponse{Result: res}
	}
	if parsed.Retorno.Pedido == nil {
		return OrderResponse{Result: errorResult("tiny api response missing order id")}
	}
	return OrderResponse{Result: res, PedidoId: parsed.Retorno.Pedido.ID}
}
