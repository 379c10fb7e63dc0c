package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"craft-keeper/internal/errs"
	"craft-keeper/internal/launch"
	"craft-keeper/internal/logger"
	"craft-keeper/internal/models"
	"craft-keeper/services"

	"github.com/gin-gonic/gin"
)

type InstanceController struct {
	launcher *services.LauncherService
}

func NewInstanceController(launcher *services.LauncherService) *InstanceController {
	return &InstanceController{launcher: launcher}
}

// LaunchBody 启动请求体，所有字段可选
type LaunchBody struct {
	PlayerName  string `json:"playerName"`
	PlayerUUID  string `json:"playerUuid"`
	AccessToken string `json:"accessToken"`
	DemoUser    bool   `json:"demoUser"`
	// QuickPlayMultiplayer 直接进入服务器，例如 "mc.example.org:25565"
	QuickPlayMultiplayer string `json:"quickPlayMultiplayer,omitempty"`
}

func (b LaunchBody) options() launch.Options {
	opts := launch.Options{
		PlayerName:  b.PlayerName,
		PlayerUUID:  b.PlayerUUID,
		AccessToken: b.AccessToken,
		DemoUser:    b.DemoUser,
	}
	if b.QuickPlayMultiplayer != "" {
		opts.Features = map[string]bool{"is_quick_play_multiplayer": true}
		opts.Extra = map[string]string{"quickPlayMultiplayer": b.QuickPlayMultiplayer}
	}
	return opts
}

/**
 * Register instance and game routes
 * @param {*gin.Engine} r - Gin router instance
 */
func (i *InstanceController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.GET("/instances", i.ListInstances)
	api.GET("/instances/:name", i.GetInstance)
	api.POST("/instances", i.CreateInstance)
	api.DELETE("/instances/:name", i.DeleteInstance)
	api.POST("/instances/:name/launch", i.LaunchInstance)
	api.GET("/games", i.ListGames)
	api.DELETE("/games/:pid", i.StopGame)
}

// @Summary 实例列表
// @Tags Instances
// @Success 200 {array} models.Instance
// @Router /launcher/api/v1/instances [get]
func (i *InstanceController) ListInstances(g *gin.Context) {
	list, err := i.launcher.Instances().List()
	if err != nil {
		respondError(g, err)
		return
	}
	if list == nil {
		list = []models.Instance{}
	}
	g.JSON(200, list)
}

// @Summary 实例详情
// @Tags Instances
// @Param name path string true "实例名"
// @Success 200 {object} models.Instance
// @Failure 404 {object} map[string]interface{} "{"code": "NOT_FOUND", "path": "name"}"
// @Router /launcher/api/v1/instances/{name} [get]
func (i *InstanceController) GetInstance(g *gin.Context) {
	inst, err := i.launcher.Instances().Get(g.Param("name"))
	if err != nil {
		respondError(g, err)
		return
	}
	g.JSON(200, inst)
}

// @Summary 创建实例
// @Tags Instances
// @Accept json
// @Param body body models.Instance true "实例"
// @Success 201 {object} models.Instance
// @Failure 409 {object} map[string]interface{}
// @Router /launcher/api/v1/instances [post]
func (i *InstanceController) CreateInstance(g *gin.Context) {
	var inst models.Instance
	if err := g.ShouldBindJSON(&inst); err != nil {
		respondError(g, &errs.Error{Code: errs.CodeInvalidInput, Err: err})
		return
	}
	if err := i.launcher.Instances().Create(inst); err != nil {
		if errors.Is(err, services.ErrInstanceExists) {
			g.JSON(http.StatusConflict, models.ErrorResponse{Code: "INSTANCE_EXISTS", Message: err.Error(), Path: inst.Name})
			return
		}
		respondError(g, err)
		return
	}
	g.JSON(201, inst)
}

// @Summary 删除实例
// @Tags Instances
// @Param name path string true "实例名"
// @Success 200 {object} map[string]interface{}
// @Router /launcher/api/v1/instances/{name} [delete]
func (i *InstanceController) DeleteInstance(g *gin.Context) {
	if err := i.launcher.Instances().Remove(g.Param("name")); err != nil {
		respondError(g, err)
		return
	}
	g.JSON(200, gin.H{"status": "success"})
}

// @Summary 启动实例
// @Description 安装实例对应的版本并启动游戏，下载失败时不会启动
// @Tags Instances
// @Accept json
// @Param name path string true "实例名"
// @Param body body LaunchBody false "玩家参数"
// @Success 200 {object} models.ProcessDetail
// @Router /launcher/api/v1/instances/{name}/launch [post]
func (i *InstanceController) LaunchInstance(g *gin.Context) {
	var body LaunchBody
	if g.Request.ContentLength > 0 {
		if err := g.ShouldBindJSON(&body); err != nil {
			respondError(g, &errs.Error{Code: errs.CodeInvalidInput, Err: err})
			return
		}
	}
	name := g.Param("name")
	// 游戏的生命周期独立于本次请求
	gp, err := i.launcher.Launch(context.Background(), services.LaunchRequest{
		Instance: name,
		Options:  body.options(),
	}, nil)
	if err != nil {
		respondError(g, err)
		return
	}
	go func() {
		for line := range gp.Output() {
			logger.Debugf("[%s] %s", name, line.Text)
		}
	}()
	g.JSON(200, gp.Detail())
}

// @Summary 运行中的游戏
// @Tags Games
// @Success 200 {array} models.ProcessDetail
// @Router /launcher/api/v1/games [get]
func (i *InstanceController) ListGames(g *gin.Context) {
	g.JSON(200, i.launcher.Games())
}

// @Summary 停止游戏
// @Tags Games
// @Param pid path int true "进程PID"
// @Success 200 {object} map[string]interface{}
// @Router /launcher/api/v1/games/{pid} [delete]
func (i *InstanceController) StopGame(g *gin.Context) {
	pid, err := strconv.Atoi(g.Param("pid"))
	if err != nil {
		respondError(g, &errs.Error{Code: errs.CodeInvalidInput, Err: err})
		return
	}
	if err := i.launcher.StopGame(pid); err != nil {
		respondError(g, err)
		return
	}
	g.JSON(200, gin.H{"status": "success"})
}
