package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Sabbir9535/BlinkChat/internal/security"
	"github.com/Sabbir9535/BlinkChat/internal/service"
	"github.com/Sabbir9535/BlinkChat/internal/ws"
)

type sendRequest struct {
	// Text is ciphertext under the shared message secret.
	Text  *string `json:"text"`
	Image *string `json:"image"`
}

type onlineResponse struct {
	UserIDs []int64 `json:"user_ids"`
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// @Summary      Sidebar
// @Description  Every other active user, the users already talked to and the unseen counts per sender
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  service.Sidebar
// @Router       /conversations [get]
func handleSidebar(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sidebar, err := msgSvc.Sidebar(r.Context(), CurrentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sidebar)
	}
}

// @Summary      Conversation history
// @Description  Messages between the caller and otherID, oldest first. Marks the other user's messages as seen.
// @Tags         conversations
// @Security     BearerAuth
// @Produce      json
// @Param        otherID path int true "Counterpart user id"
// @Success      200  {array}   domain.Message
// @Failure      400  {object}  errorResponse
// @Router       /conversation/{otherID} [get]
func handleConversation(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		otherID, ok := idParam(r, "otherID")
		if !ok {
			badRequest(w, "invalid user id")
			return
		}
		msgs, err := msgSvc.Conversation(r.Context(), CurrentUser(r).ID, otherID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// @Summary      Send a message
// @Description  text is ciphertext under the shared secret; image is a data URL or an already hosted URL
// @Tags         conversations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        otherID path int true "Receiver user id"
// @Param        input body sendRequest true "Message"
// @Success      201  {object}  domain.Message
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      429  {object}  errorResponse
// @Router       /conversation/{otherID}/send [post]
func handleSend(msgSvc *service.MessageService, enc *security.Encryptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receiverID, ok := idParam(r, "otherID")
		if !ok {
			badRequest(w, "invalid user id")
			return
		}
		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}

		in := service.SendInput{
			SenderID:   CurrentUser(r).ID,
			ReceiverID: receiverID,
			Image:      req.Image,
		}
		if req.Text != nil && *req.Text != "" {
			plain, err := enc.Decrypt(*req.Text)
			if err != nil {
				badRequest(w, "message text could not be decrypted")
				return
			}
			in.Text = &plain
		}

		msg, err := msgSvc.Send(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// @Summary      Mark a message seen
// @Tags         conversations
// @Security     BearerAuth
// @Param        messageID path int true "Message id"
// @Success      204
// @Router       /message/{messageID}/seen [put]
func handleMarkSeen(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID, ok := idParam(r, "messageID")
		if !ok {
			badRequest(w, "invalid message id")
			return
		}
		if err := msgSvc.MarkSeen(r.Context(), messageID, CurrentUser(r).ID); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// @Summary      Online users
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  onlineResponse
// @Router       /users/online [get]
func handleListOnline(registry *ws.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, onlineResponse{UserIDs: registry.Online()})
	}
}
