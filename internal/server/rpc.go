package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/copyleftdev/flashrbf/internal/errors"
)

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      interface{}       `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

// modelRef identifies a model in get and delete calls.
type modelRef struct {
	ModelID string `json:"model_id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, apperrors.CodeParseError, "Parse error", nil, nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, apperrors.CodeInvalidRequest, "Invalid Request", request.ID, nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "model.create":
		var p CreateRequest
		if err = bindParams(request.Params, &p); err == nil {
			result, err = s.createModel(p)
		}
	case "model.get":
		var p modelRef
		if err = bindParams(request.Params, &p); err == nil {
			result, err = s.getModel(p.ModelID)
		}
	case "model.predict":
		var p struct {
			modelRef
			PredictRequest
		}
		if err = bindParams(request.Params, &p); err == nil {
			result, err = s.predict(p.ModelID, p.PredictRequest)
		}
	case "model.update":
		var p struct {
			modelRef
			ObservationRequest
		}
		if err = bindParams(request.Params, &p); err == nil {
			result, err = s.update(p.ModelID, p.ObservationRequest)
		}
	case "model.calibrate":
		var p struct {
			modelRef
			ObservationRequest
		}
		if err = bindParams(request.Params, &p); err == nil {
			result, err = s.calibrate(p.ModelID, p.ObservationRequest)
		}
	case "model.delete":
		var p modelRef
		if err = bindParams(request.Params, &p); err == nil {
			if err = s.deleteModel(p.ModelID); err == nil {
				result = map[string]string{"model_id": p.ModelID, "status": "deleted"}
			}
		}
	default:
		s.respondWithError(w, apperrors.CodeMethodNotFound, "Method not found", request.ID, nil)
		return
	}

	if err != nil {
		code := apperrors.RPCCode(err)
		s.respondWithError(w, code, rpcMessage(code), request.ID, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// bindParams decodes the single positional parameter object into v.
func bindParams(params []json.RawMessage, v interface{}) error {
	if len(params) != 1 {
		return apperrors.BadRequestf("expected exactly one parameter object, got %d", len(params))
	}
	if err := json.Unmarshal(params[0], v); err != nil {
		return apperrors.BadRequestf("invalid parameter format: %v", err)
	}
	return nil
}

func rpcMessage(code int) string {
	switch code {
	case apperrors.CodeInvalidParams:
		return "Invalid params"
	case apperrors.CodeNotFound:
		return "Model not found"
	default:
		return "Server error"
	}
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}, data interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	rpcErr := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if data != nil {
		rpcErr["data"] = data
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error":   rpcErr,
		"id":      id,
	})
}
