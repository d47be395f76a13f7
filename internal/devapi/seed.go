package devapi

import (
	"time"

	"github.com/John-Robertt/closetube/internal/domain"
)

// DefaultSeed 返回开发服务器启动时的样例视频。createdAt 以 now 为基准向前推算。
func DefaultSeed(now time.Time) []domain.Video {
	day := 24 * time.Hour
	privacy := domain.Privacy{DownloadDisabled: true, ExternalShareDisabled: true}
	const demoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	return []domain.Video{
		{
			ID: "1", Title: "가족 여행 하이라이트", Description: "올해 여름 가족과 함께한 특별한 여행",
			URL: demoURL, Duration: "3:24", Author: "엄마",
			Views: 12, Likes: 8, CreatedAt: now.Add(-2 * day), Group: "가족", Privacy: privacy,
		},
		{
			ID: "2", Title: "파스타 만들기 클래스", Description: "집에서 쉽게 만드는 맛있는 파스타",
			URL: "https://www.instagram.com/reel/C0pasta/", Duration: "8:15", Author: "친구 민수",
			Views: 5, Likes: 12, CreatedAt: now.Add(-7 * day), Group: "친구들", Privacy: privacy,
		},
		{
			ID: "3", Title: "팀 프로젝트 브레인스토밍", Description: "새로운 아이디어를 위한 팀 회의",
			URL: demoURL, Duration: "15:32", Author: "팀장 지영",
			Views: 3, Likes: 5, CreatedAt: now.Add(-3 * day), Group: "팀 프로젝트", Privacy: privacy,
		},
		{
			ID: "4", Title: "동생 생일 파티", Description: "동생의 특별한 생일 축하",
			URL: "https://www.tiktok.com/@family/video/7300000000000000004", Duration: "0:48", Author: "아빠",
			Views: 18, Likes: 15, CreatedAt: now.Add(-8 * day), Group: "가족", Privacy: privacy,
		},
		{
			ID: "5", Title: "홈 트레이닝 루틴", Description: "집에서 할 수 있는 효과적인 운동",
			URL: demoURL, Duration: "12:05", Author: "친구 수진",
			Views: 7, Likes: 9, CreatedAt: now.Add(-14 * day), Group: "친구들", Privacy: privacy,
		},
		{
			ID: "6", Title: "React 컴포넌트 만들기", Description: "React로 재사용 가능한 컴포넌트 개발",
			URL: demoURL, Duration: "22:18", Author: "팀원 준호",
			Views: 4, Likes: 6, CreatedAt: now.Add(-6 * day), Group: "팀 프로젝트", Privacy: privacy,
		},
	}
}
