package game

var defaultBotNames = []string{
	"Viper", "Noodle", "Slinky", "Mamba", "Zigzag", "Pretzel",
	"Kaa", "Wiggles", "Cobra", "Sidewinder", "Taipan", "Boomslang",
	"Python", "Rattler", "Asp", "Krait", "Adder", "Lancehead",
	"Garter", "Racer",
}

// maintainPopulation 每个房间按自己的节拍补员
func (s *Sim) maintainPopulation() {
	for _, rid := range s.store.RoomIDs() {
		if last, ok := s.lastMaintain[rid]; ok && s.now.Sub(last) < s.cfg.Bots.MaintainEvery {
			continue
		}
		s.lastMaintain[rid] = s.now
		s.MaintainBots(rid)
	}
}

// MaintainBots 单次补员：先复用死亡已满复活延迟的机器人，不够再新建。返回本次生成数
func (s *Sim) MaintainBots(rid RoomID) int {
	if _, ok := s.store.Room(rid); !ok {
		return 0
	}
	alive, waiting := 0, 0
	var reusable []*Snake
	for _, sn := range s.store.SnakesIn(rid) {
		if !sn.IsBot() {
			continue
		}
		switch {
		case sn.Alive:
			alive++
		case sn.DiedAt != nil && s.now.Sub(*sn.DiedAt) >= s.cfg.Bots.RespawnDelay:
			reusable = append(reusable, sn)
		default:
			waiting++
		}
	}
	// 等待复活的机器人占着名额，机器人实体总数不超过目标数
	need := s.cfg.Bots.Target - alive - waiting
	if need <= 0 {
		return 0
	}

	spawned := 0
	for _, sn := range reusable {
		if spawned == need {
			break
		}
		s.resetSnake(sn)
		s.brains[sn.ID] = s.newMemory()
		s.metrics.IncBotsRecycled()
		spawned++
	}
	for spawned < need {
		sn := s.store.NewSnake(rid, s.store.NextBotPlayer())
		sn.Skin = s.randomSkin()
		s.resetSnake(sn)
		s.brains[sn.ID] = s.newMemory()
		s.metrics.IncBotsCreated()
		spawned++
	}
	s.log.Debugw("bots maintained", "room", rid, "alive", alive, "waiting", waiting, "spawned", spawned, "recycled", min(len(reusable), spawned))
	return spawned
}

// botName 机器人名字来自固定名表，按合成玩家 id 取
func (s *Sim) botName(id PlayerID) string {
	i := int(-id-1) % len(s.botNames)
	if i < 0 {
		i = 0
	}
	return s.botNames[i]
}

func (s *Sim) newMemory() *BotMemory {
	return &BotMemory{
		LastTick:     s.now,
		LastWanderAt: s.now,
		Wander:       s.randomUnit(),
	}
}
