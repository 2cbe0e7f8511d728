package pac

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ContentType = "application/x-ns-proxy-autoconfig"
	Path        = "/proxy.pac"

	defaultStopTimeout = 5 * time.Second
)

// Server 在 127.0.0.1 的随机端口上提供 PAC 文件，同一时间只有一个实例
type Server struct {
	log *logrus.Logger

	mu     sync.Mutex
	server *http.Server
	url    string
}

func NewServer(log *logrus.Logger) *Server {
	return &Server{log: log}
}

// Start 先停止旧实例，再监听新端口，监听成功后返回 PAC 地址
func (s *Server) Start(filePath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultStopTimeout)
	s.stopLocked(ctx)
	cancel()

	if _, err := os.Stat(filePath); err != nil {
		return "", fmt.Errorf("PAC 文件不可用: %w", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("[PAC] 监听失败: %w", err)
	}

	srv := &http.Server{
		Handler:           newHandler(filePath, s.log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("[PAC] Serve 错误: %v", err)
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	s.server = srv
	s.url = fmt.Sprintf("http://127.0.0.1:%d%s", port, Path)
	s.log.Infof("[PAC] 开始监听 %s", s.url)
	return s.url, nil
}

func newHandler(filePath string, log *logrus.Logger) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(Path, func(c *gin.Context) {
		data, err := os.ReadFile(filePath)
		if err != nil {
			log.Errorf("[PAC] 读取 %s 失败: %v", filePath, err)
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, ContentType, data)
	})
	return r
}

// Stop 优雅关闭，未运行时直接返回
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

func (s *Server) stopLocked(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if err != nil {
		s.log.Errorf("[PAC] Shutdown 错误: %v", err)
		s.server.Close()
	}
	s.log.Infof("[PAC] 停止监听 %s", s.url)
	s.server = nil
	s.url = ""
	return err
}

// URL 当前 PAC 地址，未运行时为空
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}
