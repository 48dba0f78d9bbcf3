package handlers

import (
	"net/http"

	"github.com/Dosada05/dance-battle/services"
)

type PreselectionHandler struct {
	preselectionService services.PreselectionService
}

func NewPreselectionHandler(ps services.PreselectionService) *PreselectionHandler {
	return &PreselectionHandler{preselectionService: ps}
}

// SubmitScore обрабатывает POST /tournaments/{tournamentID}/scores
func (h *PreselectionHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		ParticipantID int `json:"participant_id"`
		JudgeID       int `json:"judge_id"`
		Value         int `json:"value"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	score, err := h.preselectionService.SubmitScore(r.Context(), services.SubmitScoreInput{
		TournamentID:  tournamentID,
		ParticipantID: input.ParticipantID,
		JudgeID:       input.JudgeID,
		Value:         input.Value,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"score": score}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListStandings обрабатывает GET /tournaments/{tournamentID}/standings
func (h *PreselectionHandler) ListStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.preselectionService.ListStandings(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// FinishJudgeScoring обрабатывает POST /judges/{judgeID}/finish-scoring
func (h *PreselectionHandler) FinishJudgeScoring(w http.ResponseWriter, r *http.Request) {
	judgeID, err := getIDFromURL(r, "judgeID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.preselectionService.FinishJudgeScoring(r.Context(), judgeID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// FinishPreselection обрабатывает POST /tournaments/{tournamentID}/finish-preselection
func (h *PreselectionHandler) FinishPreselection(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.preselectionService.FinishPreselection(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
