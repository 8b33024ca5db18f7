package services

import (
	"fmt"
	"time"
)

const (
	MAX_LEVEL = 5

	DEFAULT_GAME_TIMEOUT      = 60 * time.Second
	LEADERBOARD_DEFAULT_LIMIT = 5

	PLAY_RATE_LIMIT_PER_MINUTE = 20

	CACHE_TTL_15_SECONDS = 15 * time.Second

	GAME_API_DEFAULT_URL = "https://xiaoapi.cn/API/game_ktccy.php"
)

// User-facing commands, matched on inbound message text.
const (
	CommandMenu        = "猜成语"
	CommandMyStats     = "我的猜成语战绩"
	CommandLeaderboard = "猜成语排行榜"
	CommandHint        = "提示"
	CommandQuit        = "退出"
	CommandGuessPrefix = "我猜 "
)

const (
	textMenu = `🎮 看图猜成语游戏 🎮
发送"猜成语"开始游戏！🚀
发送"提示"获取成语提示！💡
发送"我猜 <你的答案>"提交答案！🤔
发送"我的猜成语战绩"可查询战绩 📊
发送"猜成语排行榜"可查询排行榜 🏅
发送"退出"结束游戏！❌
快来试试你的成语功底吧！😎`

	textReminder = `🎮 游戏进行中！
发送"提示"获取成语提示！💡
发送"我猜 <你的答案>"提交答案！🤔
发送"退出"结束游戏！❌`

	textNotPlaying     = `🤔 你还没开始游戏哦！发送"猜成语"试试吧！`
	textStartFailed    = "🙅 游戏启动失败，请稍后再试！"
	textCheckFailed    = "🙅 答案检查失败，请稍后再试！"
	textRateLimited    = "🐢 操作太快啦，歇一会儿再来！"
	textNoHint         = "🤔 目前没有可用的提示！"
	textTimeout        = "⏰ 本关超时啦！游戏结束！"
	textQuit           = "👋 游戏已结束，欢迎下次再来！"
	textVictory        = `🏆 恭喜你完成了所有关卡！
发送"猜成语"重新挑战！`
	textStranded = `😵 下一关加载失败，游戏先结束啦！已获得的积分都保留着，发送"猜成语"重新开始！`

	textLevelStartFmt = `🎉 游戏开始啦！请看图猜成语！
当前第%d关
发送"提示"获取线索，发送"我猜 <答案>"提交，发送"退出"结束游戏哦！`
	textHintFmt    = "💡 提示来啦：%s\n快猜猜吧！"
	textWrongFmt   = "❌ 猜错了！%s\n当前第%d关，再想想，或者发送\"提示\"获取线索！"
	textCorrectFmt = "🎉 恭喜通过第%d关！答案是：%s\n🎁 获得%d积分！"
	textNextFmt    = "准备开始第%d关，继续加油！"

	textLeaderboardHeader = "🏆 猜成语积分排行榜 TOP5 🏆\n\n"
	textLeaderboardEmpty  = "暂时还没有人玩游戏哦，快来试试吧！🎉"
)

// Fixed point schedule keyed by the level just cleared.
var levelRewards = map[int]int{
	1: 20,
	2: 40,
	3: 60,
	4: 80,
	5: 100,
}

func LevelReward(level int) int {
	return levelRewards[level]
}

func DBKeyTopGameStats(limit int) string {
	return fmt.Sprintf("game_stat:top:%d", limit)
}

func LimitKeyUserPlay(userID int64) string {
	return fmt.Sprintf("limit:play:%d", userID)
}
