package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/bet"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/dto"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/ledger"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/repo"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/settle"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/verify"
)

// Preparer e Settler são as operações de domínio usadas pelos handlers.
type Preparer interface {
	Prepare(ctx context.Context, playerAddress string) (*bet.Prepared, error)
}

type Settler interface {
	Settle(ctx context.Context, sig solana.Signature, player solana.PublicKey) (*settle.Result, error)
}

// Server expõe a API pública do coinflip-service.
type Server struct {
	log     *zap.Logger
	prep    Preparer
	engine  Settler
	ledger  ledger.Client
	house   solana.PublicKey
	network string
	price   uint64
	cors    string
}

func NewServer(log *zap.Logger, prep Preparer, engine Settler, lc ledger.Client, housePub solana.PublicKey, network string, price uint64, corsOrigin string) *Server {
	return &Server{
		log:     log,
		prep:    prep,
		engine:  engine,
		ledger:  lc,
		house:   housePub,
		network: network,
		price:   price,
		cors:    corsOrigin,
	}
}

// Router retorna o mux HTTP com as rotas da API.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)          // GET
	mux.HandleFunc("/bet/prepare", s.prepareBet) // POST
	mux.HandleFunc("/bet/settle", s.settleBet)   // POST
	return s.withCORS(mux)
}

// withCORS aplica a origem permitida configurada e curto-circuita preflight.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cors)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// health informa a rede, o endereço da casa e um blockhash recente.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := dto.HealthResponse{Network: s.network, House: s.house.String()}

	blockhash, _, err := s.ledger.LatestBlockhash(r.Context(), rpc.CommitmentFinalized)
	if err != nil {
		s.log.Warn("health blockhash", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	resp.OK = true
	resp.BlockReference = blockhash.String()
	writeJSON(w, resp)
}

// prepareBet monta a transferência jogador → casa para o jogador assinar.
func (s *Server) prepareBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PrepareBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, bet.ErrInvalidAddress)
		return
	}
	if req.PlayerAddress == "" {
		s.writeError(w, bet.ErrInvalidAddress)
		return
	}

	p, err := s.prep.Prepare(r.Context(), req.PlayerAddress)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, dto.PrepareBetResponse{
		UnsignedTxBytes: base64.StdEncoding.EncodeToString(p.TxBytes),
		BlockReference:  p.Blockhash.String(),
		ExpiryHeight:    p.ExpiryHeight,
		House:           p.House.String(),
		Price:           p.Price,
	})
}

// settleBet verifica o pagamento apontado pela assinatura e liquida a aposta.
func (s *Server) settleBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.SettleBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.Signature == "" || req.PlayerAddress == "" {
		writeJSONStatus(w, http.StatusBadRequest, dto.ErrorResponse{Error: "signature and playerAddress required"})
		return
	}

	sig, err := solana.SignatureFromBase58(req.Signature)
	if err != nil {
		writeJSONStatus(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid signature"})
		return
	}
	player, err := solana.PublicKeyFromBase58(req.PlayerAddress)
	if err != nil {
		s.writeError(w, bet.ErrInvalidAddress)
		return
	}

	res, err := s.engine.Settle(r.Context(), sig, player)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var payout *string
	if res.PayoutSignature != nil {
		ps := res.PayoutSignature.String()
		payout = &ps
	}
	writeJSON(w, dto.SettleBetResponse{
		OK:              true,
		Outcome:         res.Outcome,
		PayoutSignature: payout,
		House:           s.house.String(),
		Price:           s.price,
	})
}

// writeError mapeia os erros tipados do domínio para status HTTP:
// entrada/verificação → 400, replay concorrente → 409, ledger → 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bet.ErrInvalidAddress),
		errors.Is(err, verify.ErrNotFound),
		errors.Is(err, verify.ErrMismatch):
		writeJSONStatus(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, repo.ErrAlreadySettled):
		writeJSONStatus(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		s.log.Error("settlement failure", zap.Error(err))
		writeJSONStatus(w, http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
