package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/skoryh/dogtown/internal/app"
	"github.com/skoryh/dogtown/internal/token"
)

const maxRecordsPage = 100

// bearerToken extracts and validates the Authorization header. On failure
// it writes the 401 response and returns false.
func (s *Server) bearerToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		s.writeError(w, http.StatusUnauthorized, codeInvalidToken, "Authorization header is required")
		return "", false
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		s.writeError(w, http.StatusUnauthorized, codeInvalidToken, "Invalid authorization format")
		return "", false
	}

	tok := header[len(prefix):]
	if !token.IsValid(tok) {
		s.writeError(w, http.StatusUnauthorized, codeInvalidToken, "Invalid token format")
		return "", false
	}
	return tok, true
}

// requireJSON enforces an application/json request body.
func (s *Server) requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "application/json" {
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid content type")
		return false
	}
	return true
}

type mapListItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	infos := s.app.MapsList()

	items := make([]mapListItem, 0, len(infos))
	for _, info := range infos {
		items = append(items, mapListItem{ID: info.ID, Name: info.Name})
	}
	s.writeJSON(w, http.StatusOK, items)
}

type roadJSON struct {
	X0 float64  `json:"x0"`
	Y0 float64  `json:"y0"`
	X1 *float64 `json:"x1,omitempty"`
	Y1 *float64 `json:"y1,omitempty"`
}

type buildingJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type officeJSON struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

type mapJSON struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Roads     []roadJSON        `json:"roads"`
	Buildings []buildingJSON    `json:"buildings"`
	Offices   []officeJSON      `json:"offices"`
	LootTypes []json.RawMessage `json:"lootTypes"`
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	mapID := chi.URLParam(r, "id")

	m := s.app.MapByID(mapID)
	if m == nil {
		s.writeError(w, http.StatusNotFound, codeMapNotFound, "Map not found")
		return
	}

	out := mapJSON{
		ID:        m.ID(),
		Name:      m.Name(),
		Roads:     make([]roadJSON, 0, len(m.Roads())),
		Buildings: make([]buildingJSON, 0, len(m.Buildings())),
		Offices:   make([]officeJSON, 0, len(m.Offices())),
		LootTypes: make([]json.RawMessage, 0, len(m.LootTypes())),
	}

	for _, road := range m.Roads() {
		rj := roadJSON{X0: road.Start().X, Y0: road.Start().Y}
		if road.IsHorizontal() {
			x1 := road.End().X
			rj.X1 = &x1
		} else {
			y1 := road.End().Y
			rj.Y1 = &y1
		}
		out.Roads = append(out.Roads, rj)
	}
	for _, b := range m.Buildings() {
		out.Buildings = append(out.Buildings, buildingJSON{
			X: b.Bounds.Position.X,
			Y: b.Bounds.Position.Y,
			W: b.Bounds.Size.Width,
			H: b.Bounds.Size.Height,
		})
	}
	for _, office := range m.Offices() {
		out.Offices = append(out.Offices, officeJSON{
			ID:      office.ID,
			X:       office.Position.X,
			Y:       office.Position.Y,
			OffsetX: office.Offset.Dx,
			OffsetY: office.Offset.Dy,
		})
	}
	for _, lt := range m.LootTypes() {
		out.LootTypes = append(out.LootTypes, lt.Raw)
	}

	s.writeJSON(w, http.StatusOK, out)
}

type joinRequest struct {
	UserName *string `json:"userName"`
	MapID    *string `json:"mapId"`
}

type joinResponse struct {
	AuthToken string `json:"authToken"`
	PlayerID  int    `json:"playerId"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if !s.requireJSON(w, r) {
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "Join game request parse error")
		return
	}
	if req.UserName == nil || req.MapID == nil {
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "Missing required fields")
		return
	}
	if *req.UserName == "" {
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid name")
		return
	}

	result, err := s.app.Join(*req.UserName, *req.MapID)
	if err != nil {
		if errors.Is(err, app.ErrMapNotFound) {
			s.writeError(w, http.StatusNotFound, codeMapNotFound, "Map not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, codeInternalError, "Internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, joinResponse{
		AuthToken: result.AuthToken,
		PlayerID:  result.PlayerID,
	})
}

type playerName struct {
	Name string `json:"name"`
}

func (s *Server) handleGetPlayers(w http.ResponseWriter, r *http.Request) {
	tok, ok := s.bearerToken(w, r)
	if !ok {
		return
	}

	names, err := s.app.PlayersFor(tok)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, codeUnknownToken, "Player token has not been found")
		return
	}

	out := make(map[int]playerName, len(names))
	for id, name := range names {
		out[id] = playerName{Name: name}
	}
	s.writeJSON(w, http.StatusOK, out)
}

type bagItemJSON struct {
	ID   int `json:"id"`
	Type int `json:"type"`
}

type playerStateJSON struct {
	Pos   [2]float64    `json:"pos"`
	Speed [2]float64    `json:"speed"`
	Dir   string        `json:"dir"`
	Bag   []bagItemJSON `json:"bag"`
	Score int           `json:"score"`
}

type lostObjectJSON struct {
	Type int        `json:"type"`
	Pos  [2]float64 `json:"pos"`
}

type gameStateJSON struct {
	Players     map[int]playerStateJSON `json:"players"`
	LostObjects map[int]lostObjectJSON  `json:"lostObjects"`
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	tok, ok := s.bearerToken(w, r)
	if !ok {
		return
	}

	view, err := s.app.StateFor(tok)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, codeUnknownToken, "Player token has not been found")
		return
	}

	out := gameStateJSON{
		Players:     make(map[int]playerStateJSON, len(view.Players)),
		LostObjects: make(map[int]lostObjectJSON, len(view.Loots)),
	}
	for id, p := range view.Players {
		bag := make([]bagItemJSON, 0, len(p.Bag))
		for _, item := range p.Bag {
			bag = append(bag, bagItemJSON{ID: item.ID, Type: item.Type})
		}
		out.Players[id] = playerStateJSON{
			Pos:   p.Pos,
			Speed: p.Speed,
			Dir:   p.Dir,
			Bag:   bag,
			Score: p.Score,
		}
	}
	for id, loot := range view.Loots {
		out.LostObjects[id] = lostObjectJSON{Type: loot.Type, Pos: loot.Pos}
	}

	s.writeJSON(w, http.StatusOK, out)
}

type actionRequest struct {
	Move *string `json:"move"`
}

func (s *Server) handlePlayerAction(w http.ResponseWriter, r *http.Request) {
	tok, ok := s.bearerToken(w, r)
	if !ok {
		return
	}
	if !s.requireJSON(w, r) {
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "Failed to parse action")
		return
	}
	if req.Move == nil {
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "Missing move field")
		return
	}

	switch err := s.app.ApplyMove(tok, *req.Move); {
	case err == nil:
		s.writeJSON(w, http.StatusOK, struct{}{})
	case errors.Is(err, app.ErrUnknownToken):
		s.writeError(w, http.StatusUnauthorized, codeUnknownToken, "Player token has not been found")
	case errors.Is(err, app.ErrInvalidMove):
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid move direction")
	default:
		s.writeError(w, http.StatusInternalServerError, codeInternalError, "Internal server error")
	}
}

type tickRequest struct {
	TimeDelta *int64 `json:"timeDelta"`
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if !s.requireJSON(w, r) {
		return
	}

	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "Failed to parse tick request")
		return
	}
	if req.TimeDelta == nil || *req.TimeDelta < 0 {
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "Invalid timeDelta value")
		return
	}

	if err := s.app.Tick(time.Duration(*req.TimeDelta) * time.Millisecond); err != nil {
		s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "Manual ticks are disabled")
		return
	}
	s.writeJSON(w, http.StatusOK, struct{}{})
}

type recordJSON struct {
	Name     string  `json:"name"`
	Score    int     `json:"score"`
	PlayTime float64 `json:"playTime"`
}

func (s *Server) handleGetRecords(w http.ResponseWriter, r *http.Request) {
	start := 0
	maxItems := maxRecordsPage

	query := r.URL.Query()
	if raw := query.Get("start"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 0 {
			s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "start must be a non-negative integer")
			return
		}
		start = val
	}
	if raw := query.Get("maxItems"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val <= 0 || val > maxRecordsPage {
			s.writeError(w, http.StatusBadRequest, codeInvalidArgument, "maxItems must be in (0, 100]")
			return
		}
		maxItems = val
	}

	records, err := s.app.Records(r.Context(), start, maxItems)
	if err != nil {
		s.log.Error("failed to fetch records", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, codeInternalError, "Failed to fetch records")
		return
	}

	out := make([]recordJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, recordJSON{Name: rec.Name, Score: rec.Score, PlayTime: rec.PlayTime})
	}
	s.writeJSON(w, http.StatusOK, out)
}
