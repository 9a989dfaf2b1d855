package page

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatService "github.com/zhouzirui/z-chat/backend/internal/service/chat"
	"github.com/zhouzirui/z-chat/backend/internal/web"
	"github.com/zhouzirui/z-chat/backend/pkg/utils"
)

const indexTemplate = "index.html"

// Handler 渲染聊天页面
type Handler struct {
	chatSvc   *chatService.Service
	templates *template.Template
}

type pageData struct {
	Response string
}

// New 创建页面处理器
func New(chatSvc *chatService.Service) (*Handler, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, err
	}
	return &Handler{chatSvc: chatSvc, templates: templates}, nil
}

// RegisterRoutes 注册页面与静态资源路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleHome)
	r.Post("/chat", h.handleChatForm)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	utils.RespondHTML(w, http.StatusOK, h.templates, indexTemplate, pageData{})
}

// handleChatForm relays the form message and renders the reply inline.
// Nothing is persisted on this path.
func (h *Handler) handleChatForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusUnprocessableEntity)
		return
	}

	message := r.PostForm.Get("message")
	if message == "" {
		http.Error(w, "message is required", http.StatusUnprocessableEntity)
		return
	}

	result := h.chatSvc.Ask(r.Context(), message)
	utils.RespondHTML(w, http.StatusOK, h.templates, indexTemplate, pageData{Response: result.Reply})
}
