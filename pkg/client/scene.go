package client

import "go.uber.org/zap"

// SceneLoader hands control to another scene.
type SceneLoader interface {
	LoadScene(name string) error
}

// SceneLoaderFunc adapts a function to SceneLoader.
type SceneLoaderFunc func(name string) error

func (f SceneLoaderFunc) LoadScene(name string) error { return f(name) }

// Guard redirects to a safe scene when the session cannot continue.
type Guard struct {
	loader SceneLoader
	log    *zap.Logger
}

func NewGuard(loader SceneLoader, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{loader: loader, log: log}
}

// FallbackTo loads scene. Loader failures are logged, never returned.
func (g *Guard) FallbackTo(scene string) {
	g.log.Info("[SCENE] fallback", zap.String("scene", scene))
	if g.loader == nil {
		g.log.Warn("[SCENE] no scene loader configured", zap.String("scene", scene))
		return
	}
	if err := g.loader.LoadScene(scene); err != nil {
		g.log.Error("[SCENE] loading fallback scene failed", zap.String("scene", scene), zap.Error(err))
	}
}
