package domain

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"
)

func fieldNames(err error) []string {
	var out []string
	for _, ve := range ValidationFields(err) {
		out = append(out, ve.Field)
	}
	sort.Strings(out)
	return out
}

func TestMemoryInput_Validate(t *testing.T) {
	err := MemoryInput{Importance: "urgent"}.Validate()
	if got, want := fieldNames(err), []string{"importance", "title", "videoId"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("期望字段错误 %v，实际 %v（err=%v）", want, got, err)
	}
	if !IsValidation(err) {
		t.Fatalf("期望校验错误，实际 %v", err)
	}

	ok := MemoryInput{VideoID: "1", Title: "  여름 여행  "}
	if err := ok.Validate(); err != nil {
		t.Fatalf("importance 为空应视为 medium，实际 err=%v", err)
	}
}

func TestNewMemory_Normalizes(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("KST", 9*3600))
	m, err := NewMemory("m1", MemoryInput{
		VideoID:    " 1 ",
		Title:      " 가족 여행 ",
		Tags:       []string{"가족", " 여행 ", "", "가족"},
		SharedWith: []string{"김민수", "김민수", " "},
	}, now)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if m.VideoID != "1" || m.Title != "가족 여행" || m.Importance != ImportanceMedium {
		t.Fatalf("规整结果不正确：%+v", m)
	}
	if !reflect.DeepEqual(m.Tags, []string{"가족", "여행"}) || !reflect.DeepEqual(m.SharedWith, []string{"김민수"}) {
		t.Fatalf("标签/分享对象应去空去重：tags=%v sharedWith=%v", m.Tags, m.SharedWith)
	}
	if !m.CreatedAt.Equal(now) || m.CreatedAt.Location() != time.UTC {
		t.Fatalf("createdAt 应为 UTC 的 now，实际 %v", m.CreatedAt)
	}

	if _, err := NewMemory("m2", MemoryInput{VideoID: "1"}, now); !IsValidation(err) {
		t.Fatalf("缺少标题应返回校验错误，实际 %v", err)
	}
}

func TestMemory_JSONShape(t *testing.T) {
	var m Memory
	raw := `{"id":"1","videoId":"1","title":"가족 여행의 추억","description":"","tags":["가족"],"importance":"high","sharedWith":["김민수","이지영"],"createdAt":"2024-01-15"}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("解码失败：%v", err)
	}
	if m.ID != "1" || m.Importance != ImportanceHigh || len(m.SharedWith) != 2 {
		t.Fatalf("解码结果不正确：%+v", m)
	}
	if want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC); !m.CreatedAt.Equal(want) {
		t.Fatalf("期望 createdAt=%v，实际 %v", want, m.CreatedAt)
	}

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("编码失败：%v", err)
	}
	for _, key := range []string{`"videoId":"1"`, `"importance":"high"`, `"sharedWith":[`} {
		if !strings.Contains(string(b), key) {
			t.Fatalf("编码结果缺少 %s：%s", key, b)
		}
	}
}

func TestRecommendation_Validate(t *testing.T) {
	v := Video{ID: "3", URL: "https://www.youtube.com/watch?v=a"}

	r := NewRecommendation(v, []string{" ", ""}, "  같이 봐요  ")
	if got, want := fieldNames(r.Validate()), []string{"friendIds"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("没有好友时期望 %v，实际 %v", want, got)
	}
	if r.Message != "같이 봐요" || r.URL != v.URL || r.VideoID != "3" {
		t.Fatalf("推荐内容不正确：%+v", r)
	}

	r = NewRecommendation(v, []string{"1", "2", "1"}, "")
	if err := r.Validate(); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(r.FriendIDs, []string{"1", "2"}) {
		t.Fatalf("好友应去重：%v", r.FriendIDs)
	}

	r.Message = strings.Repeat("가", MaxRecommendMessageLength+1)
	r.URL = ""
	if got, want := fieldNames(r.Validate()), []string{"message", "url"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("期望 %v，实际 %v", want, got)
	}
}

func TestParseImportance(t *testing.T) {
	cases := map[string]Importance{"": ImportanceMedium, "HIGH": ImportanceHigh, " low ": ImportanceLow}
	for in, want := range cases {
		got, ok := ParseImportance(in)
		if !ok || got != want {
			t.Fatalf("ParseImportance(%q) 期望 %q，实际 %q ok=%v", in, want, got, ok)
		}
	}
	if _, ok := ParseImportance("urgent"); ok {
		t.Fatalf("未知的 importance 不应通过")
	}
}
