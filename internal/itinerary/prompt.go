package itinerary

import (
	"encoding/json"
	"fmt"
	"strings"
)

const unspecified = "미지정"

// Party describes who is travelling.
type Party struct {
	Adults int    `json:"adults"`
	Kids   int    `json:"kids"`
	Notes  string `json:"notes"`
}

// Request is a day-by-day itinerary request for a set of preferred places.
type Request struct {
	Places          []string `json:"places"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	Transport       string   `json:"transport"`
	BudgetPerPerson int64    `json:"budgetPerPerson" binding:"gte=0"`
	Party           *Party   `json:"party"`
	PlaceMeta       []any    `json:"placeMeta"`
}

// Prompt is a system/user instruction pair.
type Prompt struct {
	System string
	User   string
}

const systemPrompt = `당신은 서울 로컬 여행 플래너입니다.
- 사용자의 선호 장소 목록과 날짜, 이동수단, 예산, 동행자 정보를 보고 현실적이고 동선이 좋은 일정만 제안합니다.
- 결과는 반드시 JSON으로만 출력하세요(설명 텍스트 금지).
- 통화 단위는 KRW, 시간대는 Asia/Seoul로 가정합니다.
- 대중교통/도보 동선을 우선 고려하고, 이동시간을 30~45분 이내로 설계하세요.
- 음식점은 가능한 사용자 장소 주변에서 추천하세요.
- 예산은 1인 기준 총액을 참고해 식사/입장료/교통/기타로 대략 분배하세요.
JSON 스키마:
{
  "summary": "한 줄 요약",
  "dateRange": {"start":"YYYY-MM-DD","end":"YYYY-MM-DD","nights": number},
  "days": [
    {
      "date": "YYYY-MM-DD",
      "title": "테마",
      "blocks": [
        {"time":"HH:mm","name":"장소/활동","why":"선정 이유","tip":"현지 팁","cost": "예상비용(원)"}
      ],
      "meals": {
        "lunch": {"name":"식당명","near":"가까운 장소","menu":"추천 메뉴","cost":"1인"},
        "dinner": {"name":"식당명","near":"가까운 장소","menu":"추천 메뉴","cost":"1인"}
      },
      "transitNote": "이동 요약(지하철/버스/도보/택시)"
    }
  ],
  "budgetBreakdown": {"meals": number, "entry": number, "transport": number, "etc": number},
  "notes": "아이동반/휠체어/반려동물 등 특이사항 반영 메모"
}`

// BuildPrompt renders req. Missing values become placeholders; it never fails.
func BuildPrompt(req Request) Prompt {
	party := Party{Adults: 1}
	if req.Party != nil {
		party = *req.Party
		if party.Adults <= 0 {
			party.Adults = 1
		}
		if party.Kids < 0 {
			party.Kids = 0
		}
	}

	places := make([]string, 0, len(req.Places))
	for _, p := range req.Places {
		if p = strings.TrimSpace(p); p != "" {
			places = append(places, p)
		}
	}
	meta := req.PlaceMeta
	if meta == nil {
		meta = []any{}
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		metaJSON = []byte("[]")
	}

	var b strings.Builder
	b.WriteString("입력:\n")
	fmt.Fprintf(&b, "- 선호 장소: %s\n", orUnspecified(strings.Join(places, ", ")))
	fmt.Fprintf(&b, "- 날짜: %s ~ %s\n", orUnspecified(req.StartDate), orUnspecified(req.EndDate))
	fmt.Fprintf(&b, "- 이동수단: %s\n", orUnspecified(req.Transport))
	fmt.Fprintf(&b, "- 예산(1인): %d원\n", max(req.BudgetPerPerson, 0))
	fmt.Fprintf(&b, "- 동행자: 성인 %d명, 아동 %d명", party.Adults, party.Kids)
	if notes := strings.TrimSpace(party.Notes); notes != "" {
		fmt.Fprintf(&b, ", 특이사항:%s", notes)
	}
	b.WriteString("\n\n참고(장소 메타):\n")
	b.Write(metaJSON)

	return Prompt{System: systemPrompt, User: b.String()}
}

func orUnspecified(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unspecified
	}
	return s
}
