package server

import (
	"fmt"

	"snakearena/game"
)

// 入站输入的 JSON 结构（WebSocket 文本消息）
// 示例：{"type":"dir","x":0.6,"y":-0.8,"boost":true}
type InputMessage struct {
	Type     string       `json:"type"`
	Skin     *string      `json:"skin,omitempty"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Boost    bool         `json:"boost"`
	FoodID   game.FoodID  `json:"foodId"`
	VictimID game.SnakeID `json:"victimId"`
	Seq      int64        `json:"seq,omitempty"` // 客户端本地序列号，引擎据此丢弃乱序的旧方向
}

// Command 把除 spawn 以外的输入翻译为引擎指令；spawn 需要查询皮肤解锁，由连接单独处理
func (im InputMessage) Command(pid game.PlayerID) (game.Command, error) {
	switch im.Type {
	case "dir":
		return game.Steer{Player: pid, Dir: game.Vec2{X: im.X, Y: im.Y}, Boost: im.Boost, Seq: im.Seq}, nil
	case "eat":
		return game.Eat{Player: pid, Food: im.FoodID}, nil
	case "kill":
		return game.Kill{Player: pid, Victim: im.VictimID}, nil
	case "leave":
		return game.Leave{Player: pid}, nil
	default:
		return nil, fmt.Errorf("no command for message type %q", im.Type)
	}
}
